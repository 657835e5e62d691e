// @title Wispa 消息服务 API
// @version 1.0
// @description Wispa 即时通讯应用的后端服务器。

// @contact.name API支持
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"

	"wispa_backend/internal/app"
	"wispa_backend/internal/config"
	"wispa_backend/pkg/logger"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 配置热更新：刷新运行时配置引用，JWT 密钥变更后新签发的令牌立即生效
	application.RegisterConfigCallback(func(newCfg *config.Config) {
		cfg.JWT = newCfg.JWT
		cfg.CORS = newCfg.CORS
		cfg.RateLimit = newCfg.RateLimit
	})
	application.StartConfigWatcher("configs/config.yaml")

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}
