package main

import (
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli"

	_ "github.com/IceFireDB/IceFireDB-Chord/driver/badger"
	_ "github.com/IceFireDB/IceFireDB-Chord/driver/goleveldb"
	_ "github.com/IceFireDB/IceFireDB-Chord/driver/hybriddb"
	_ "github.com/IceFireDB/IceFireDB-Chord/driver/memory"
	_ "github.com/IceFireDB/IceFireDB-Chord/driver/oss"
	"github.com/IceFireDB/IceFireDB-Chord/pkg/config"
	"github.com/IceFireDB/IceFireDB-Chord/ring"
	"github.com/IceFireDB/IceFireDB-Chord/utils"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		logrus.Errorf("failed to run application: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "IceFireDB-Chord"
	app.Usage = "chord ring node speaking the resp protocol"
	app.Description = "IceFireDB-Chord, a static chord ring: finger table routing, put and get over resp."
	app.Version = BuildVersion
	app.Flags = nodeFlags
	app.Before = initConfig
	app.Action = start
	app.Commands = clientCommands
	return app
}

func initConfig(c *cli.Context) error {
	v := viper.GetViper()
	config.SetDefaults(v)

	// Read configuration file configuration
	path := c.GlobalString("config")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if c.GlobalIsSet("config") || !errors.Is(err, os.ErrNotExist) {
			return err
		}
		logrus.Warnf("config file %s not found, using defaults", path)
	}

	if c.GlobalIsSet("id") {
		v.Set("node.id", c.GlobalUint64("id"))
	}
	if c.GlobalIsSet("listen") {
		v.Set("node.listen", c.GlobalString("listen"))
	}
	if c.GlobalIsSet("members") {
		ids, err := ring.Parse(c.GlobalString("members"))
		if err != nil {
			return err
		}
		members := make([]uint64, len(ids))
		for i, id := range ids {
			members[i] = uint64(id)
		}
		v.Set("ring.members", members)
	}

	// Map configuration file content to structure
	if err := config.InitConfig(); err != nil {
		return err
	}
	if err := setupLogger(config.Get().Log); err != nil {
		return err
	}
	debug()
	return nil
}

func debug() {
	// Open pprof
	if config.Get().PprofDebug.Enable {
		utils.GoWithRecover(func() {
			addr := ":" + strconv.Itoa(int(config.Get().PprofDebug.Port))
			logrus.Infof("pprof listening on %s", addr)
			_ = http.ListenAndServe(addr, nil)
		}, nil)
	}
}
