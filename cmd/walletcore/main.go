package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"wallet-core-sol/internal/config"
	"wallet-core-sol/internal/pkg/logger"
	"wallet-core-sol/internal/service"
	"wallet-core-sol/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/walletcore.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	c := config.MustLoad(*configFile)
	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	sg := zerosvc.NewServiceGroup()
	sg.Add(serviceContext.Reconciler)
	if c.Metrics.ListenAddr != "" {
		sg.Add(service.NewMetricsService(c.Metrics.ListenAddr, serviceContext.Registry))
	}

	logx.Infof("Starting wallet core services, network=%s", c.Network)

	// 启动服务
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
