package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/config"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/abi-codec/api"
	"github.com/icon-project/abi-codec/contract"
	"github.com/icon-project/abi-codec/contract/eth"
	"github.com/icon-project/abi-codec/database"
)

type Config struct {
	config.FileConfig `json:",squash"`

	Server   ServerConfig             `json:"server"`
	Database database.Config          `json:"database"`
	Networks map[string]NetworkConfig `json:"networks"`
	ABIFiles []string                 `json:"abi_files,omitempty"`

	LogLevel     string            `json:"log_level"`
	ConsoleLevel string            `json:"console_level"`
	LogWriter    *log.WriterConfig `json:"log_writer,omitempty"`
}

type ServerConfig struct {
	Address      string `json:"address"`
	DumpLogLevel string `json:"dump_log_level,omitempty"`
	CacheSize    int    `json:"cache_size,omitempty"`
}

type NetworkConfig struct {
	NetworkType string           `json:"type"`
	Endpoint    string           `json:"endpoint"`
	Options     contract.Options `json:"options,omitempty"`
}

func ReadConfig(filePath string, cfg *Config, vc *viper.Viper) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("fail to open config file=%s err=%+v", filePath, err)
	}
	defer f.Close()
	vc.SetConfigType("json")
	err = vc.ReadConfig(f)
	if err != nil {
		return fmt.Errorf("fail to read config file=%s err=%+v", filePath, err)
	}
	if err = vc.Unmarshal(cfg, cli.ViperDecodeOptJson); err != nil {
		return fmt.Errorf("fail to unmarshall config from env err=%+v", err)
	}
	cfg.FilePath, _ = filepath.Abs(filePath)
	return nil
}

func MustEncodeOptions(v interface{}) contract.Options {
	opt, err := contract.EncodeOptions(v)
	if err != nil {
		log.Panicf("%+v", err)
	}
	return opt
}

func SetupLogger(l log.Logger, cfg *Config, modLevels map[string]string) error {
	if cfg.LogWriter != nil {
		var lwCfg log.WriterConfig
		lwCfg = *cfg.LogWriter
		lwCfg.Filename = cfg.ResolveAbsolute(lwCfg.Filename)
		writer, err := log.NewWriter(&lwCfg)
		if err != nil {
			return fmt.Errorf("fail to make writer err=%+v", err)
		}
		if err = l.SetFileWriter(writer); err != nil {
			return fmt.Errorf("fail to set file logger err=%+v", err)
		}
	}
	if lv, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level=%s", cfg.LogLevel)
	} else {
		l.SetLevel(lv)
	}
	if lv, err := log.ParseLevel(cfg.ConsoleLevel); err != nil {
		return fmt.Errorf("invalid console_level=%s", cfg.ConsoleLevel)
	} else {
		l.SetConsoleLevel(lv)
	}
	for mod, lvStr := range modLevels {
		if lv, err := log.ParseLevel(lvStr); err != nil {
			return fmt.Errorf("invalid mod_level mod=%s level=%s", mod, lvStr)
		} else {
			l.SetModuleLevel(mod, lv)
		}
	}
	return nil
}

func NewServerCommand(parentCmd *cobra.Command, parentVc *viper.Viper, version, build string, logoLines []string) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "server", "Server management")
	cfg := &Config{}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgFilePath := rootVc.GetString("config"); cfgFilePath != "" {
			if err := ReadConfig(cfgFilePath, cfg, rootVc); err != nil {
				return err
			}
		}
		if err := rootVc.Unmarshal(&cfg, cli.ViperDecodeOptJson); err != nil {
			return fmt.Errorf("fail to unmarshall config from env err=%+v", err)
		}
		return nil
	}
	rootPFlags := rootCmd.PersistentFlags()
	rootPFlags.StringP("config", "c", "", "Parsing configuration file")
	rootPFlags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	rootPFlags.String("console_level", "trace", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	rootPFlags.String("log_writer.filename", "abi-codec.log", "Log file name (rotated files resides in same directory)")
	rootPFlags.Int("log_writer.maxsize", 100, "Maximum log file size in MiB")
	rootPFlags.Int("log_writer.maxage", 0, "Maximum age of log file in day")
	rootPFlags.Int("log_writer.maxbackups", 0, "Maximum number of backups")
	rootPFlags.Bool("log_writer.localtime", false, "Use localtime on rotated log file instead of UTC")
	rootPFlags.Bool("log_writer.compress", false, "Use gzip on rotated log file")
	//ServerConfig
	rootPFlags.String("server.address", "localhost:8080", "server address")
	rootPFlags.String("server.dump_log_level", "trace", "server dump log level (trace,debug,info)")
	rootPFlags.Int("server.cache_size", contract.DefaultMethodCacheSize, "number of methods kept in memory")
	//DatabaseConfig
	rootPFlags.String("database.driver", database.DriverSQLite, "database driver (mysql,postgres,sqlite)")
	rootPFlags.String("database.user", "", "database user")
	rootPFlags.String("database.password", "", "database password")
	rootPFlags.String("database.host", "", "database host")
	rootPFlags.Uint("database.port", 0, "database port")
	rootPFlags.String("database.dbname", "abi-codec.db", "database name, file path for sqlite")
	rootPFlags.String("database.log_level", "trace", "database statement log level (trace,debug,info)")
	rootPFlags.Uint("database.slow_query_ms", database.DefaultSlowQueryMillis, "slow query threshold in milliseconds")
	rootPFlags.StringSlice("abi_files", nil, "ABI files registered at start")
	cli.BindPFlags(rootVc, rootPFlags)

	saveCmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Save configuration",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFlagsWithViper(rootVc, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			saveFilePath := args[0]
			cfg.FilePath, _ = filepath.Abs(saveFilePath)
			cfg.BaseDir = cfg.ResolveRelative(cfg.BaseDir)

			if cfg.LogWriter != nil {
				cfg.LogWriter.Filename = cfg.ResolveRelative(cfg.LogWriter.Filename)
			}
			if cfg.Database.Driver == database.DriverSQLite {
				cfg.Database.DBName = cfg.ResolveRelative(cfg.Database.DBName)
			}
			for i, f := range cfg.ABIFiles {
				cfg.ABIFiles[i] = cfg.ResolveRelative(f)
			}

			if example, err := cmd.Flags().GetBool("example"); err != nil {
				return err
			} else if example {
				if len(cfg.Networks) == 0 {
					cfg.Networks = map[string]NetworkConfig{
						eth.NetworkTypeEth + "Network": {
							NetworkType: eth.NetworkTypeEth,
							Endpoint:    "http://localhost:8545",
							Options: MustEncodeOptions(eth.SourceOption{
								TransportLogLevel: contract.LogLevel(log.TraceLevel),
							}),
						},
						eth.NetworkTypeBSC + "Network": {
							NetworkType: eth.NetworkTypeBSC,
							Endpoint:    "http://localhost:8575",
							Options: MustEncodeOptions(eth.SourceOption{
								TransportLogLevel: contract.LogLevel(log.TraceLevel),
							}),
						},
					}
				}
				if len(cfg.ABIFiles) == 0 {
					cfg.ABIFiles = []string{cfg.ResolveRelative("/path/to/abi.json")}
				}
			}

			if err := cli.JsonPrettySaveFile(saveFilePath, 0644, cfg); err != nil {
				return err
			}
			cmd.Println("Save configuration to", saveFilePath)
			return nil
		},
	}
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().Bool("example", false, "example")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFlagsWithViper(rootVc, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, l := range logoLines {
				log.Println(l)
			}
			log.Printf("Version : %s", version)
			log.Printf("Build   : %s", build)

			l := log.GlobalLogger()
			modLevels, _ := cmd.Flags().GetStringToString("mod_level")
			if err := SetupLogger(l, cfg, modLevels); err != nil {
				log.Panicf("%+v", err)
			}
			serverDumpLogLevel, err := log.ParseLevel(cfg.Server.DumpLogLevel)
			if err != nil {
				return err
			} else {
				serverDumpLogLevel = contract.EnsureTransportLogLevel(serverDumpLogLevel)
			}

			dbCfg := cfg.Database
			if dbCfg.Driver == database.DriverSQLite {
				dbCfg.DBName = cfg.ResolveAbsolute(dbCfg.DBName)
			}
			db, err := database.OpenDatabase(dbCfg, l)
			if err != nil {
				return err
			}
			r, err := contract.NewRegistry(db, cfg.Server.CacheSize, l)
			if err != nil {
				return err
			}
			for _, f := range cfg.ABIFiles {
				spec, err := contract.NewSpecFromFile(cfg.ResolveAbsolute(f))
				if err != nil {
					return err
				}
				if _, err = r.RegisterSpec(spec); err != nil {
					return err
				}
				l.Infof("register abi file:%s methods:%d", f, len(spec.Methods()))
			}

			s := api.NewServer(cfg.Server.Address, r, serverDumpLogLevel, l)
			for network, n := range cfg.Networks {
				src, err := contract.NewSource(n.NetworkType, n.Endpoint, n.Options, l)
				if err != nil {
					return err
				}
				s.AddSource(network, src)
			}
			cli.OnInterrupt(func() {
				if err := s.Stop(); err != nil {
					l.Warnf("fail to Stop err:%+v", err)
				}
			})
			return s.Start()
		},
	}
	rootCmd.AddCommand(startCmd)
	startFlags := startCmd.Flags()
	startFlags.StringToString("mod_level", nil, "Set console log level for specific module ('mod'='level',...)")
	startFlags.MarkHidden("mod_level")
	return rootCmd, rootVc
}
