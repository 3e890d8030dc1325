package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/urfave/cli"

	"github.com/IceFireDB/IceFireDB-Chord/pkg/config"
	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/transport"
)

var nodeFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config,c",
		Usage: "config file",
		Value: defaultConfigPath,
	},
	cli.Uint64Flag{
		Name:  "id,n",
		Usage: "ring id of this node, overrides node.id",
	},
	cli.StringFlag{
		Name:  "listen,l",
		Usage: "resp listen address, overrides node.listen",
	},
	cli.StringFlag{
		Name:  "members,m",
		Usage: "comma separated ring members, overrides ring.members",
	},
}

var addrFlag = cli.StringFlag{
	Name:  "addr,a",
	Usage: "address of a running node",
	Value: "127.0.0.1:1234",
}

var timeoutFlag = cli.DurationFlag{
	Name:  "timeout,t",
	Usage: "request timeout",
	Value: 5 * time.Second,
}

var clientCommands = []cli.Command{
	{
		Name:      "put",
		Usage:     "store a value under a key",
		ArgsUsage: "key value",
		Flags:     []cli.Flag{addrFlag, timeoutFlag},
		Action: withClient(2, func(ctx context.Context, c *transport.Client, args cli.Args) error {
			key, err := cast.ToInt64E(args.Get(0))
			if err != nil {
				return err
			}
			if err := c.Put(ctx, key, []byte(args.Get(1))); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		}),
	},
	{
		Name:      "get",
		Usage:     "read the value stored under a key",
		ArgsUsage: "key",
		Flags:     []cli.Flag{addrFlag, timeoutFlag},
		Action: withClient(1, func(ctx context.Context, c *transport.Client, args cli.Args) error {
			key, err := cast.ToInt64E(args.Get(0))
			if err != nil {
				return err
			}
			item, err := c.Get(ctx, key)
			if err != nil {
				return err
			}
			if !item.Found {
				fmt.Println("(nil)")
				return nil
			}
			fmt.Println(string(item.Value))
			return nil
		}),
	},
	{
		Name:      "lookup",
		Usage:     "resolve the node owning an identifier",
		ArgsUsage: "id",
		Flags:     []cli.Flag{addrFlag, timeoutFlag},
		Action: withClient(1, func(ctx context.Context, c *transport.Client, args cli.Args) error {
			id, err := cast.ToUint64E(args.Get(0))
			if err != nil {
				return err
			}
			route, err := c.Lookup(ctx, ring.ID(id))
			if err != nil {
				return err
			}
			path := make([]string, len(route.Path))
			for i, p := range route.Path {
				path[i] = cast.ToString(uint64(p))
			}
			fmt.Printf("owner: %d\nhops: %d [%s]\n", route.Owner, route.Hops(), strings.Join(path, " -> "))
			return nil
		}),
	},
	{
		Name:      "info",
		Usage:     "print node information",
		ArgsUsage: "[section]",
		Flags:     []cli.Flag{addrFlag, timeoutFlag},
		Action: withClient(0, func(ctx context.Context, c *transport.Client, args cli.Args) error {
			info, err := c.Info(ctx, args.First())
			if err != nil {
				return err
			}
			fmt.Print(info)
			return nil
		}),
	},
}

// withClient checks the argument count and dials --addr for a command.
func withClient(nargs int, fn func(context.Context, *transport.Client, cli.Args) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() < nargs {
			return cli.NewExitError(fmt.Sprintf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage), 2)
		}
		client := transport.NewClient(c.String("addr"), transport.Options{})
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
		defer cancel()
		return fn(ctx, client, c.Args())
	}
}

func setupLogger(c config.LogS) error {
	level := c.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stdout)

	switch c.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
