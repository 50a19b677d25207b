package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/leafdb/leafdb/internal/cache"
	"github.com/leafdb/leafdb/internal/config"
	"github.com/leafdb/leafdb/internal/gnuify"
	"github.com/leafdb/leafdb/internal/logging"
	"github.com/leafdb/leafdb/internal/memo"
	"github.com/leafdb/leafdb/internal/payload"
	"github.com/leafdb/leafdb/internal/server"
	"github.com/leafdb/leafdb/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	dump        bool
	serve       bool
	gnuifyIn    string
	gnuifyOut   string
	coords      []string
}

// usage 提示负数坐标需写在 -- 之后，否则会被当作 flag。
const usage = "usage: leafdb [flags] [--] <coord>...  (negative coordinates go after --, e.g. leafdb -- -2 1)"

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
	now              = time.Now
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["storage_path"] = cfg.StoragePath
		fields["precision"] = cfg.Precision
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	if opts.gnuifyIn != "" {
		return runGnuify(opts, logger)
	}

	store, err := cache.NewOSStore(cfg.StoragePath, cfg.Precision)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化存储目录失败: %v\n", err)
		return 1
	}
	dumper, err := cache.NewDumper(afero.NewOsFs(), store.Codec(), cfg.DumpPath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化 dump 失败: %v\n", err)
		return 1
	}

	if opts.serve {
		if err := startHTTPServer(cfg, store, dumper, logger); err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return 1
		}
		return 0
	}

	if len(opts.coords) == 0 && !opts.dump {
		fmt.Fprintln(stdErr, usage)
		return 2
	}

	if len(opts.coords) > 0 {
		m, err := memo.New(store, logger)
		if err != nil {
			fmt.Fprintf(stdErr, "初始化失败: %v\n", err)
			return 1
		}
		outcome, err := m.Lookup(payload.ParseArgs(opts.coords), payload.Evaluate)
		if err != nil {
			fmt.Fprintf(stdErr, "查询失败: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdOut, store.Codec().Stringify(outcome.Value))
	}

	if opts.dump {
		n, err := dumper.Dump()
		if err != nil {
			fmt.Fprintf(stdErr, "dump 失败: %v\n", err)
			return 1
		}
		logger.WithFields(logrus.Fields{
			"action":  "dump",
			"entries": n,
			"path":    dumper.Path(),
		}).Info("dump 写入完成")
	}
	return 0
}

func runGnuify(opts cliOptions, logger *logrus.Logger) int {
	out := opts.gnuifyOut
	if out == "" {
		out = gnuify.DefaultOutputName(opts.gnuifyIn, now())
	}
	n, err := gnuify.ConvertFile(afero.NewOsFs(), opts.gnuifyIn, out)
	if err != nil {
		fmt.Fprintf(stdErr, "gnuify 失败: %v\n", err)
		return 1
	}
	logger.WithFields(logrus.Fields{
		"action": "gnuify",
		"in":     opts.gnuifyIn,
		"out":    out,
		"rows":   n,
	}).Info("gnuify 完成")
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
// 配置路径为空时由 config.Load 尝试默认文件。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("leafdb", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts cliOptions
	var configFlag string

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 LEAFDB_CONFIG 覆盖）")
	fs.BoolVar(&opts.checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&opts.showVersion, "version", false, "显示版本信息")
	fs.BoolVar(&opts.dump, "dump", false, "查询结束后写出 dump 快照")
	fs.BoolVar(&opts.serve, "serve", false, "启动 HTTP 服务")
	fs.StringVar(&opts.gnuifyIn, "gnuify", "", "将 dump 文件转换为 gnuplot 数据")
	fs.StringVar(&opts.gnuifyOut, "gnuify-out", "", "gnuify 输出文件（默认 <时间戳>_<名称>_.dat）")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w\n%s", err, usage)
	}

	opts.configPath = os.Getenv("LEAFDB_CONFIG")
	if configFlag != "" {
		opts.configPath = configFlag
	}
	opts.coords = fs.Args()
	return opts, nil
}

func startHTTPServer(cfg *config.Config, store cache.Store, dumper *cache.Dumper, logger *logrus.Logger) error {
	port := cfg.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:      logger,
		Store:       store,
		Dumper:      dumper,
		ListenPort:  port,
		ReadTimeout: cfg.ReadTimeout.DurationValue(),
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action":       "listen",
		"port":         port,
		"storage_path": cfg.StoragePath,
		"version":      version.Full(),
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
