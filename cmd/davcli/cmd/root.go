package cmd

import (
	"fmt"
	"os"

	"github.com/xxxsen/davkit/client"
	"github.com/xxxsen/davkit/cmd/davcli/config"
	"github.com/xxxsen/davkit/transport"
	"github.com/xxxsen/davkit/transport/nethttp"
	"github.com/xxxsen/davkit/transport/restyhttp"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"golang.org/x/time/rate"
)

const (
	defaultConfigFileEnv = "DAVCLI_CONFIG"
)

var cmds []CreateFunc

type Context struct {
	Client *client.Client
	Config *config.Config
}

type CreateFunc func(ctx *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func initContext(ctx *Context, cfgs []string) error {
	c, err := loadConfig(cfgs)
	if err != nil {
		return err
	}
	ctx.Config = c
	logger.Init("", c.LogLevel, 0, 0, 0, true)
	cli, err := buildClient(c)
	if err != nil {
		return err
	}
	ctx.Client = cli
	return nil
}

// loadConfig tries the candidate config files in order and takes the first
// one that parses. Empty candidates (unset flag or env) are skipped.
func loadConfig(cfgs []string) (*config.Config, error) {
	var lastErr error
	for _, cfg := range cfgs {
		if len(cfg) == 0 {
			continue
		}
		c, err := config.Parse(cfg)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no config file candidates")
	}
	return nil, fmt.Errorf("no valid config file found, last err:%w", lastErr)
}

func buildClient(c *config.Config) (*client.Client, error) {
	var tr transport.ITransport
	switch c.Backend {
	case "", "nethttp":
		tr = nethttp.New()
	case "resty":
		tr = restyhttp.New()
	default:
		return nil, fmt.Errorf("unknown backend:%s", c.Backend)
	}
	opts := []client.Option{
		client.WithEndpoint(c.Endpoint),
		client.WithTransport(tr),
		client.WithRequestLog(),
	}
	if c.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(rate.NewLimiter(rate.Limit(c.RateLimit), c.RateLimit)))
	}
	if len(c.Username) != 0 {
		switch c.AuthKind {
		case "", "basic":
			opts = append(opts, client.WithBasicAuth(c.Username, c.Password))
		case "digest":
			opts = append(opts, client.WithDigestAuth(c.Username, c.Password))
		default:
			return nil, fmt.Errorf("unknown auth kind:%s", c.AuthKind)
		}
	}
	return client.New(opts...)
}

func NewRoot() *cobra.Command {
	var configFile string
	ctx := &Context{}
	var rootCmd = &cobra.Command{
		Use:   "davcli",
		Short: "WebDAV CLI tool",
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		envConfigFile, _ := os.LookupEnv(defaultConfigFileEnv)
		return initContext(ctx, []string{configFile, "/etc/davcli/davcli_config.json", envConfigFile})
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	return rootCmd
}
