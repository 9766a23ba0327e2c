// Command dnsdiag is the domain diagnostic engine's CLI surface: single-
// domain analysis, batch analysis over many domains, and the security
// probe subsystem. Grounded on telepresenceio-telepresence's cmd/k3sctl
// (a cobra.Command tree with SilenceUsage/SilenceErrors and one RunE per
// subcommand) generalized from that repo's dev-tooling commands to this
// module's analyze/batch/probe packages.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"

	"github.com/domaindiag/dnsdiag/analyze"
	"github.com/domaindiag/dnsdiag/batch"
	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/probe"
)

// validDomainSyntax rejects obviously malformed input before any network
// I/O, per spec.md §6/§8 scenario 3 ("not a domain!!" -> rejected, exit
// 1). It defers the wire-level label/length rules to dns.IsDomainName
// (the same check several pack examples, e.g. noisysockets-resolver, use
// to guard their own resolve calls) and adds only the n >= 2 label
// requirement spec.md §3's data model states. Domain-name syntax
// validation proper is out of scope (spec.md §1); this is a pre-filter,
// not a full RFC 1035 validator.
func validDomainSyntax(d string) bool {
	d = strings.TrimSpace(d)
	if d == "" {
		return false
	}
	labels, ok := dns.IsDomainName(d)
	return ok && labels >= 2
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dnsdiag",
		Short:         "dnsdiag",
		Long:          "dnsdiag - iterative DNS resolution, per-authority record interrogation, and DNS security probes",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newResolveCommand())
	root.AddCommand(newBatchCommand())
	root.AddCommand(newProbeCommand())

	return root
}

func newResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <domain>",
		Short: "analyze a single domain: discover authoritative nameservers and interrogate every record type",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		domain := strings.TrimSpace(args[0])
		if !validDomainSyntax(domain) {
			os.Exit(1)
		}

		sink := diaglog.NewLogrusSink()
		report, failure := analyze.Domain(cmd.Context(), domain, analyze.Options{Sink: sink})
		if failure != nil {
			sink.Record(diaglog.LevelError, "analysis failed",
				diaglog.F("domain", domain), diaglog.F("kind", failure.Kind.String()))
			os.Exit(1)
		}

		if report.Empty() {
			sink.Record(diaglog.LevelError, "analysis produced an empty report", diaglog.F("domain", domain))
			os.Exit(1)
		}

		return printJSON(report)
	}

	return cmd
}

func newBatchCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch <domain> [domain...]",
		Short: "analyze many domains concurrently under a global concurrency bound",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", batch.DefaultConcurrency, "maximum number of domains analyzed concurrently")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var domains []string
		for _, d := range args {
			d = strings.TrimSpace(d)
			if !validDomainSyntax(d) {
				return fmt.Errorf("invalid domain syntax: %q", d)
			}
			domains = append(domains, d)
		}

		sink := diaglog.NewLogrusSink()
		outcomes := batch.Run(cmd.Context(), domains, batch.Options{
			Sink:        sink,
			Concurrency: int64(concurrency),
		})

		return printJSON(outcomes)
	}

	return cmd
}

func newProbeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <server-ip>",
		Short: "run the Kaminsky TXID-guessing and amplification probes against a target DNS server",
		Args:  cobra.ExactArgs(1),
	}

	port := cmd.Flags().Int("port", 53, "target DNS server port")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		serverIP := args[0]
		sink := diaglog.NewLogrusSink()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		spoofResult, err := probe.RunSpoof(ctx, serverIP, *port, sink)
		if err != nil {
			return fmt.Errorf("spoof probe: %w", err)
		}

		ampResult, err := probe.RunAmplification(ctx, serverIP, *port, sink)
		if err != nil {
			return fmt.Errorf("amplification probe: %w", err)
		}

		return printJSON(map[string]interface{}{
			"spoof":         spoofResult,
			"amplification": ampResult,
		})
	}

	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
