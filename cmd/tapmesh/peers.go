package main

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapmesh/tapmesh/network"
	"github.com/tapmesh/tapmesh/types"
)

type peersOptions struct {
	control string
	output  string
	timeout time.Duration
}

func (o *peersOptions) client() (*network.Client, error) {
	addr, err := types.ParseAddr(o.control)
	if err != nil {
		return nil, err
	}
	return network.NewClient(addr, o.timeout), nil
}

func newPeersCmd() *cobra.Command {
	opts := new(peersOptions)
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Inspect and change the peer table of a running node",
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.control, "control", fmt.Sprintf("127.0.0.1:%d", types.DefaultControlPort), "control address of the node")
	flags.StringVarP(&opts.output, "output", "o", "table", "output format: table, json or yaml")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "how long to wait for the node to answer")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the node's peers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			peers, err := c.ListPeers()
			if err != nil {
				return fmt.Errorf("list peers: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), NewFormatter(opts.output).Format(peers))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <addr>",
		Short: "Add a peer; the node resolves its hardware address first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			addr, err := types.ParseAddr(args[1])
			if err != nil {
				return err
			}
			peer, err := types.NewPeer(args[0], addr, types.HardwareAddr{})
			if err != nil {
				return err
			}
			if err := c.AddPeer(peer); err != nil {
				if errors.Is(err, network.RejectedError{}) {
					return fmt.Errorf("node could not reach %s", peer)
				}
				return fmt.Errorf("add peer: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", peer)
			return nil
		},
	})

	var removeName, removeHost string
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove peers by name and/or control IP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var name *string
			var host netip.Addr
			if cmd.Flags().Changed("name") {
				name = &removeName
			}
			if cmd.Flags().Changed("host") {
				var err error
				if host, err = netip.ParseAddr(removeHost); err != nil {
					return fmt.Errorf("invalid host %q: %w", removeHost, err)
				}
			}
			if name == nil && !host.IsValid() {
				return errors.New("nothing to remove, pass --name or --host")
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.RemovePeer(name, host); err != nil {
				return fmt.Errorf("remove peer: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "removed")
			return nil
		},
	}
	remove.Flags().StringVar(&removeName, "name", "", "remove peers with this name")
	remove.Flags().StringVar(&removeHost, "host", "", "remove peers with this control IP")
	cmd.AddCommand(remove)

	cmd.AddCommand(&cobra.Command{
		Use:   "scan",
		Short: "Run a discovery round on the node and show what answered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			peers, err := c.ScanNodes()
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), NewFormatter(opts.output).Format(peers))
			return nil
		},
	})
	return cmd
}
