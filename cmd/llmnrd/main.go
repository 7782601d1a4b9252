// Command llmnrd is a single-host LLMNR (RFC 4795) responder. It
// answers link-local multicast name queries for this host's own short
// name and tracks interface address changes live via netlink.
//
// Process daemonization and pidfile management are intentionally not
// implemented here: they belong to whatever supervisor starts this
// process (systemd, runit, or a wrapper script), consistent with the
// responder's single responsibility.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	flagHostname   string
	flagSignal     int
	flagDebugState bool
)

var rootCmd = &cobra.Command{
	Use:   "llmnrd",
	Short: "LLMNR responder for this host",
	Long: `llmnrd answers RFC 4795 Link-Local Multicast Name Resolution
queries for this host's own name. It joins the LLMNR multicast group
on every interface that has a configured address and keeps that
membership current as addresses come and go.`,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the llmnrd version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(os.Stdout, version)
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagHostname, "hostname", "", "override the host name to answer for (default: os.Hostname())")
	rootCmd.Flags().IntVar(&flagSignal, "interrupt-signal", 34, "realtime signal number used to interrupt the netlink worker on shutdown")
	rootCmd.Flags().BoolVar(&flagDebugState, "debug-state", false, "perform one netlink address refresh, print the known interface count, and exit instead of serving")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
