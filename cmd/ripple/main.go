package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦═╗╦╔═╗╔═╗╦  ╔═╗
  ╠╦╝║╠═╝╠═╝║  ║╣
  ╩╚═╩╩  ╩  ╩═╝╚═╝
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "ripple",
		Short: "Tooling for the ripple reactivity runtime",
		Long: `Ripple is a fine-grained reactivity runtime for Go.

The library lives in pkg/ripple; this CLI ships the supporting tooling:

  • ripple devtools   run the runtime inspector
  • ripple bench      measure signal/computed/effect throughput
  • ripple init       write a default ripple.json
  • ripple version    print build information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		initCmd(),
		devtoolsCmd(),
		benchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the ripple ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
