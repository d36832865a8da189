package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/longhorn/nvmeof-gateway/api"
	"github.com/longhorn/nvmeof-gateway/types"
)

const (
	FlagServerAddress = "server-address"
	FlagServerPort    = "server-port"
	FlagTimeout       = "timeout"

	FlagSubsystem     = "subsystem"
	FlagSerialNumber  = "serial-number"
	FlagMaxNamespaces = "max-namespaces"
	FlagMinCntlid     = "min-cntlid"
	FlagMaxCntlid     = "max-cntlid"
	FlagAnaReporting  = "ana-reporting"
	FlagEnableHA      = "enable-ha"
	FlagForce         = "force"
	FlagNSID          = "nsid"
	FlagUUID          = "uuid"
	FlagPool          = "rbd-pool"
	FlagImage         = "rbd-image"
	FlagBlockSize     = "block-size"
	FlagLoadBalancing = "load-balancing-group"
	FlagSize          = "size"
	FlagHost          = "host"
	FlagGatewayName   = "gateway-name"
	FlagTrtype        = "trtype"
	FlagAdrfam        = "adrfam"
	FlagTraddr        = "traddr"
	FlagTrsvcid       = "trsvcid"
	FlagAutoHAState   = "auto-ha-state"
	FlagLogLevel      = "log-level"
	FlagPrintLevel    = "print-level"

	FlagRwIOs    = "rw-ios-per-second"
	FlagRwMbytes = "rw-megabytes-per-second"
	FlagRMbytes  = "r-megabytes-per-second"
	FlagWMbytes  = "w-megabytes-per-second"
)

func ClientCmd() cli.Command {
	return cli.Command{
		Name:  "cli",
		Usage: "Manage a running gateway",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:   FlagServerAddress,
				Value:  "127.0.0.1",
				Usage:  "Specify the gateway address",
				EnvVar: "NVMEOF_GATEWAY_ADDRESS",
			},
			cli.IntFlag{
				Name:   FlagServerPort,
				Value:  types.DefaultGatewayPort,
				Usage:  "Specify the gateway port",
				EnvVar: "NVMEOF_GATEWAY_PORT",
			},
			cli.DurationFlag{
				Name:  FlagTimeout,
				Value: 2 * time.Minute,
				Usage: "Specify the request timeout",
			},
		},
		Subcommands: []cli.Command{
			subsystemCmd(),
			namespaceCmd(),
			hostCmd(),
			connectionCmd(),
			listenerCmd(),
			logLevelCmd(),
			gatewayCmd(),
		},
	}
}

type response interface {
	Result() *types.ReqStatus
}

// call connects to the gateway, runs fn and prints the response. A failed
// response exits with its status code.
func call(c *cli.Context, fn func(ctx context.Context, client *api.GatewayClient) (response, error)) error {
	address := fmt.Sprintf("%s:%d", c.GlobalString(FlagServerAddress), c.GlobalInt(FlagServerPort))
	client, err := api.NewGatewayClient(address)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.GlobalDuration(FlagTimeout))
	defer cancel()

	resp, err := fn(ctx, client)
	if err != nil {
		return err
	}
	output, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))

	if st := resp.Result(); st.Status != 0 {
		return cli.NewExitError(st.ErrorMessage, st.Status)
	}
	return nil
}

func requireFlags(c *cli.Context, names ...string) error {
	for _, name := range names {
		if !c.IsSet(name) {
			return fmt.Errorf("require %v", name)
		}
	}
	return nil
}

func subsystemCmd() cli.Command {
	return cli.Command{
		Name:  "subsystem",
		Usage: "Manage subsystems",
		Subcommands: []cli.Command{
			{
				Name:  "add",
				Usage: "Create a subsystem",
				Flags: []cli.Flag{
					cli.StringFlag{Name: FlagSubsystem},
					cli.StringFlag{Name: FlagSerialNumber, Usage: "Generated when empty"},
					cli.UintFlag{Name: FlagMaxNamespaces},
					cli.UintFlag{Name: FlagMinCntlid},
					cli.UintFlag{Name: FlagMaxCntlid},
					cli.BoolFlag{Name: FlagAnaReporting},
					cli.BoolFlag{Name: FlagEnableHA},
				},
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.CreateSubsystem(ctx, &types.CreateSubsystemRequest{
							SubsystemNQN:  c.String(FlagSubsystem),
							SerialNumber:  c.String(FlagSerialNumber),
							MaxNamespaces: uint32(c.Uint(FlagMaxNamespaces)),
							MinCntlid:     uint16(c.Uint(FlagMinCntlid)),
							MaxCntlid:     uint16(c.Uint(FlagMaxCntlid)),
							AnaReporting:  c.Bool(FlagAnaReporting),
							EnableHA:      c.Bool(FlagEnableHA),
						})
					})
				},
			},
			{
				Name:  "del",
				Usage: "Delete a subsystem",
				Flags: []cli.Flag{
					cli.StringFlag{Name: FlagSubsystem},
					cli.BoolFlag{Name: FlagForce, Usage: "Delete the namespaces of the subsystem too"},
				},
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.DeleteSubsystem(ctx, &types.DeleteSubsystemRequest{
							SubsystemNQN: c.String(FlagSubsystem),
							Force:        c.Bool(FlagForce),
						})
					})
				},
			},
			{
				Name:  "list",
				Usage: "List subsystems",
				Flags: []cli.Flag{
					cli.StringFlag{Name: FlagSubsystem},
					cli.StringFlag{Name: FlagSerialNumber},
				},
				Action: func(c *cli.Context) error {
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.ListSubsystems(ctx, &types.ListSubsystemsRequest{
							SubsystemNQN: c.String(FlagSubsystem),
							SerialNumber: c.String(FlagSerialNumber),
						})
					})
				},
			},
		},
	}
}

func namespaceFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		cli.StringFlag{Name: FlagSubsystem},
		cli.UintFlag{Name: FlagNSID},
		cli.StringFlag{Name: FlagUUID},
	}, extra...)
}

func optionalUint64(c *cli.Context, name string) *uint64 {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Uint64(name)
	return &v
}

func namespaceCmd() cli.Command {
	return cli.Command{
		Name:  "namespace",
		Usage: "Manage namespaces",
		Subcommands: []cli.Command{
			{
				Name:  "add",
				Usage: "Add a namespace backed by an RBD image",
				Flags: namespaceFlags(
					cli.StringFlag{Name: FlagPool},
					cli.StringFlag{Name: FlagImage},
					cli.UintFlag{Name: FlagBlockSize, Value: 512},
					cli.UintFlag{Name: FlagLoadBalancing},
				),
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem, FlagPool, FlagImage); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.AddNamespace(ctx, &types.NamespaceAddRequest{
							RbdPoolName:  c.String(FlagPool),
							RbdImageName: c.String(FlagImage),
							SubsystemNQN: c.String(FlagSubsystem),
							NSID:         uint32(c.Uint(FlagNSID)),
							BlockSize:    uint32(c.Uint(FlagBlockSize)),
							UUID:         c.String(FlagUUID),
							Anagrpid:     uint32(c.Uint(FlagLoadBalancing)),
						})
					})
				},
			},
			{
				Name:  "del",
				Usage: "Delete a namespace",
				Flags: namespaceFlags(),
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.DeleteNamespace(ctx, &types.NamespaceDeleteRequest{
							SubsystemNQN: c.String(FlagSubsystem),
							NSID:         uint32(c.Uint(FlagNSID)),
							UUID:         c.String(FlagUUID),
						})
					})
				},
			},
			{
				Name:  "resize",
				Usage: "Resize a namespace",
				Flags: namespaceFlags(cli.Uint64Flag{Name: FlagSize, Usage: "New size in MiB"}),
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem, FlagSize); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.ResizeNamespace(ctx, &types.NamespaceResizeRequest{
							SubsystemNQN: c.String(FlagSubsystem),
							NSID:         uint32(c.Uint(FlagNSID)),
							UUID:         c.String(FlagUUID),
							NewSize:      c.Uint64(FlagSize),
						})
					})
				},
			},
			{
				Name:  "get_io_stats",
				Usage: "Get IO statistics of a namespace",
				Flags: namespaceFlags(),
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.GetNamespaceIOStats(ctx, &types.NamespaceGetIOStatsRequest{
							SubsystemNQN: c.String(FlagSubsystem),
							NSID:         uint32(c.Uint(FlagNSID)),
							UUID:         c.String(FlagUUID),
						})
					})
				},
			},
			{
				Name:  "set_qos",
				Usage: "Set QOS limits of a namespace, unset limits keep their previous value",
				Flags: namespaceFlags(
					cli.Uint64Flag{Name: FlagRwIOs},
					cli.Uint64Flag{Name: FlagRwMbytes},
					cli.Uint64Flag{Name: FlagRMbytes},
					cli.Uint64Flag{Name: FlagWMbytes},
				),
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.SetNamespaceQosLimits(ctx, &types.NamespaceSetQosRequest{
							SubsystemNQN:      c.String(FlagSubsystem),
							NSID:              uint32(c.Uint(FlagNSID)),
							UUID:              c.String(FlagUUID),
							RwIosPerSecond:    optionalUint64(c, FlagRwIOs),
							RwMbytesPerSecond: optionalUint64(c, FlagRwMbytes),
							RMbytesPerSecond:  optionalUint64(c, FlagRMbytes),
							WMbytesPerSecond:  optionalUint64(c, FlagWMbytes),
						})
					})
				},
			},
			{
				Name:  "change_load_balancing_group",
				Usage: "Move a namespace to another load balancing group",
				Flags: namespaceFlags(cli.UintFlag{Name: FlagLoadBalancing}),
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem, FlagLoadBalancing); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.ChangeLoadBalancingGroup(ctx, &types.NamespaceChangeLoadBalancingGroupRequest{
							SubsystemNQN: c.String(FlagSubsystem),
							NSID:         uint32(c.Uint(FlagNSID)),
							UUID:         c.String(FlagUUID),
							Anagrpid:     uint32(c.Uint(FlagLoadBalancing)),
						})
					})
				},
			},
			{
				Name:  "list",
				Usage: "List namespaces of a subsystem",
				Flags: namespaceFlags(),
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.ListNamespaces(ctx, &types.ListNamespacesRequest{
							Subsystem: c.String(FlagSubsystem),
							NSID:      uint32(c.Uint(FlagNSID)),
							UUID:      c.String(FlagUUID),
						})
					})
				},
			},
		},
	}
}

func hostCmd() cli.Command {
	hostFlags := []cli.Flag{
		cli.StringFlag{Name: FlagSubsystem},
		cli.StringFlag{Name: FlagHost, Usage: "Host NQN, \"*\" allows any host"},
	}
	return cli.Command{
		Name:  "host",
		Usage: "Manage hosts allowed to connect to a subsystem",
		Subcommands: []cli.Command{
			{
				Name:  "add",
				Flags: hostFlags,
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem, FlagHost); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.AddHost(ctx, &types.AddHostRequest{
							SubsystemNQN: c.String(FlagSubsystem),
							HostNQN:      c.String(FlagHost),
						})
					})
				},
			},
			{
				Name:  "del",
				Flags: hostFlags,
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem, FlagHost); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.RemoveHost(ctx, &types.RemoveHostRequest{
							SubsystemNQN: c.String(FlagSubsystem),
							HostNQN:      c.String(FlagHost),
						})
					})
				},
			},
			{
				Name:  "list",
				Flags: []cli.Flag{cli.StringFlag{Name: FlagSubsystem}},
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.ListHosts(ctx, &types.ListHostsRequest{Subsystem: c.String(FlagSubsystem)})
					})
				},
			},
		},
	}
}

func connectionCmd() cli.Command {
	return cli.Command{
		Name:  "connection",
		Usage: "Inspect host connections",
		Subcommands: []cli.Command{
			{
				Name:  "list",
				Flags: []cli.Flag{cli.StringFlag{Name: FlagSubsystem}},
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.ListConnections(ctx, &types.ListConnectionsRequest{Subsystem: c.String(FlagSubsystem)})
					})
				},
			},
		},
	}
}

func listenerFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		cli.StringFlag{Name: FlagSubsystem},
		cli.StringFlag{Name: FlagGatewayName},
		cli.StringFlag{Name: FlagTrtype, Value: string(types.TransportTypeTCP)},
		cli.StringFlag{Name: FlagAdrfam, Value: string(types.AddressFamilyIPv4)},
		cli.StringFlag{Name: FlagTraddr},
		cli.UintFlag{Name: FlagTrsvcid, Value: types.DefaultTrsvcid},
	}, extra...)
}

func listenerCmd() cli.Command {
	return cli.Command{
		Name:  "listener",
		Usage: "Manage subsystem listeners",
		Subcommands: []cli.Command{
			{
				Name:  "add",
				Flags: listenerFlags(cli.StringFlag{Name: FlagAutoHAState}),
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem, FlagGatewayName, FlagTraddr); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.CreateListener(ctx, &types.CreateListenerRequest{
							NQN:         c.String(FlagSubsystem),
							GatewayName: c.String(FlagGatewayName),
							Trtype:      c.String(FlagTrtype),
							Adrfam:      c.String(FlagAdrfam),
							Traddr:      c.String(FlagTraddr),
							Trsvcid:     uint32(c.Uint(FlagTrsvcid)),
							AutoHAState: c.String(FlagAutoHAState),
						})
					})
				},
			},
			{
				Name:  "del",
				Flags: listenerFlags(),
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem, FlagGatewayName, FlagTraddr); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.DeleteListener(ctx, &types.DeleteListenerRequest{
							NQN:         c.String(FlagSubsystem),
							GatewayName: c.String(FlagGatewayName),
							Trtype:      c.String(FlagTrtype),
							Adrfam:      c.String(FlagAdrfam),
							Traddr:      c.String(FlagTraddr),
							Trsvcid:     uint32(c.Uint(FlagTrsvcid)),
						})
					})
				},
			},
			{
				Name:  "list",
				Flags: []cli.Flag{cli.StringFlag{Name: FlagSubsystem}},
				Action: func(c *cli.Context) error {
					if err := requireFlags(c, FlagSubsystem); err != nil {
						return err
					}
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.ListListeners(ctx, &types.ListListenersRequest{Subsystem: c.String(FlagSubsystem)})
					})
				},
			},
		},
	}
}

func logLevelCmd() cli.Command {
	return cli.Command{
		Name:  "spdk_log_level",
		Usage: "Manage SPDK nvmf logging",
		Subcommands: []cli.Command{
			{
				Name: "get",
				Action: func(c *cli.Context) error {
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.GetLogFlags(ctx, &types.GetLogFlagsRequest{})
					})
				},
			},
			{
				Name: "set",
				Flags: []cli.Flag{
					cli.StringFlag{Name: FlagLogLevel},
					cli.StringFlag{Name: FlagPrintLevel},
				},
				Action: func(c *cli.Context) error {
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.SetLogFlags(ctx, &types.SetLogFlagsRequest{
							LogLevel:   c.String(FlagLogLevel),
							PrintLevel: c.String(FlagPrintLevel),
						})
					})
				},
			},
			{
				Name: "disable",
				Action: func(c *cli.Context) error {
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.DisableLogFlags(ctx, &types.DisableLogFlagsRequest{})
					})
				},
			},
		},
	}
}

func gatewayCmd() cli.Command {
	return cli.Command{
		Name:  "gw",
		Usage: "Inspect the gateway",
		Subcommands: []cli.Command{
			{
				Name: "info",
				Action: func(c *cli.Context) error {
					return call(c, func(ctx context.Context, client *api.GatewayClient) (response, error) {
						return client.GetGatewayInfo(ctx, &types.GetGatewayInfoRequest{CLIVersion: VERSION})
					})
				},
			},
		},
	}
}
