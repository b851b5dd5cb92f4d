package main

import (
	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	//.envは無ければ環境変数だけで動く
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}

	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.CartItem{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB, cfg.LockTimeout)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txManager)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager)
	inventoryUC := usecase.NewInventoryUsecase(txManager, productRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, productRepo)

	//Handler生成
	orderH := handler.NewOrderHandler(orderUC)
	adminOrderH := handler.NewAdminOrderHandler(adminOrderUC)
	adminInventoryH := handler.NewAdminInventoryHandler(inventoryUC)
	cartH := handler.NewCartHandler(cartUC)

	//Server組み立て
	e := server.New(cfg, log)
	orderH.RegisterRoutes(e, cfg)
	adminOrderH.RegisterRoutes(e, cfg)
	adminInventoryH.RegisterRoutes(e, cfg)
	cartH.RegisterRoutes(e, cfg)

	addr := ":" + cfg.Port
	if cfg.Port[0] == ':' {
		addr = cfg.Port
	}

	log.Info("server starting", zap.String("addr", addr))
	if err := server.Start(e, addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
