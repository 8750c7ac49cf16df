/*
 * Copyright (C) 2023 The "MysteriumNetwork/node" Authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package networks

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"

	"github.com/mysteriumnetwork/vpn-orchestrator/cmd"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/protocol"
	"github.com/mysteriumnetwork/vpn-orchestrator/core/trustednetwork"
)

type storage interface {
	List() ([]trustednetwork.TrustedNetwork, error)
	Get(ssid string) (trustednetwork.TrustedNetwork, error)
	Delete(ssid string) error
}

type policy interface {
	SetTrusted(ssid string, trusted bool) (trustednetwork.TrustedNetwork, error)
	MarkPreferred(ssid string, pp protocol.ProtocolPort) (trustednetwork.TrustedNetwork, error)
}

// NewCommand function creates networks command
func NewCommand() *cli.Command {
	var di cmd.Dependencies

	withNetworks := func(action func(ctx *cli.Context, c *command) error) cli.ActionFunc {
		return func(ctx *cli.Context) error {
			if err := cmd.PrepareConfig(ctx); err != nil {
				return err
			}
			if err := di.BootstrapNetworkStorage(); err != nil {
				return err
			}
			return action(ctx, &command{
				storage: di.TrustedNetworks,
				policy:  di.TrustedPolicy,
				out:     ctx.App.Writer,
			})
		}
	}

	return &cli.Command{
		Name:  "networks",
		Usage: "Manages remembered Wi-Fi networks, the orchestrator must not be running",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Lists remembered Wi-Fi networks",
				Action: withNetworks(func(_ *cli.Context, c *command) error { return c.list() }),
			},
			{
				Name:      "trust",
				Usage:     "Marks the Wi-Fi network as trusted",
				ArgsUsage: "<ssid>",
				Action: withNetworks(func(ctx *cli.Context, c *command) error {
					return c.setTrusted(ctx.Args().First(), true)
				}),
			},
			{
				Name:      "untrust",
				Usage:     "Marks the Wi-Fi network as untrusted",
				ArgsUsage: "<ssid>",
				Action: withNetworks(func(ctx *cli.Context, c *command) error {
					return c.setTrusted(ctx.Args().First(), false)
				}),
			},
			{
				Name:      "prefer",
				Usage:     "Sets the preferred protocol of the Wi-Fi network",
				ArgsUsage: "<ssid> <protocol> <port>",
				Action: withNetworks(func(ctx *cli.Context, c *command) error {
					return c.prefer(ctx.Args().Get(0), ctx.Args().Get(1), ctx.Args().Get(2))
				}),
			},
			{
				Name:      "forget",
				Usage:     "Removes the Wi-Fi network record",
				ArgsUsage: "<ssid>",
				Action: withNetworks(func(ctx *cli.Context, c *command) error {
					return c.forget(ctx.Args().First())
				}),
			},
		},
		After: func(ctx *cli.Context) error {
			return di.Shutdown()
		},
	}
}

type command struct {
	storage storage
	policy  policy
	out     io.Writer
}

func (c *command) list() error {
	networks, err := c.storage.List()
	if err != nil {
		return err
	}
	if len(networks) == 0 {
		_, err = fmt.Fprintln(c.out, "No remembered networks")
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SSID\tTRUSTED\tPROTOCOL\tPREFERRED\tDISMISSED")
	for _, network := range networks {
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%d\n",
			network.SSID,
			network.Trusted,
			describe(network.Protocol()),
			describePreferred(network),
			network.DismissCount,
		)
	}
	return w.Flush()
}

func (c *command) setTrusted(ssid string, trusted bool) error {
	if ssid == "" {
		return errors.New("ssid is required")
	}
	network, err := c.policy.SetTrusted(ssid, trusted)
	if err != nil {
		return errors.Wrapf(err, "could not update %q", ssid)
	}
	_, err = fmt.Fprintf(c.out, "%s trusted: %t\n", network.SSID, network.Trusted)
	return err
}

func (c *command) prefer(ssid, name, port string) error {
	if ssid == "" {
		return errors.New("ssid is required")
	}
	portNumber, err := cast.ToIntE(port)
	if err != nil {
		return errors.Wrapf(err, "invalid port %q", port)
	}
	pp := protocol.ProtocolPort{Protocol: name, Port: portNumber}
	if err := pp.Validate(); err != nil {
		return err
	}

	network, err := c.policy.MarkPreferred(ssid, pp)
	if err != nil {
		return errors.Wrapf(err, "could not update %q", ssid)
	}
	_, err = fmt.Fprintf(c.out, "%s preferred: %s\n", network.SSID, describePreferred(network))
	return err
}

func (c *command) forget(ssid string) error {
	if _, err := c.storage.Get(ssid); err != nil {
		return errors.Wrapf(err, "could not find %q", ssid)
	}
	if err := c.storage.Delete(ssid); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "%s forgotten\n", ssid)
	return err
}

func describe(pp protocol.ProtocolPort) string {
	if pp.IsZero() {
		return "-"
	}
	return pp.String()
}

func describePreferred(network trustednetwork.TrustedNetwork) string {
	preferred, ok := network.Preferred()
	if !ok {
		return "-"
	}
	return preferred.String()
}
