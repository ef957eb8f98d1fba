package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"riskchat/internal/config"
	"riskchat/internal/controller"
	"riskchat/internal/conversation"
	"riskchat/internal/i18n"
	"riskchat/internal/logging"
	"riskchat/internal/session"
	"riskchat/internal/storage"
	"riskchat/internal/transport"
)

// BuildResult 与 UI 无关的构建结果，供 main 选择 TUI 或 REPL
// BuildResult is UI-agnostic; main hands it to the TUI or the REPL
type BuildResult struct {
	Controller *controller.Controller
	Client     *transport.Client
	Store      storage.Store
	Sessions   *session.Store
	Translator *i18n.I18n
	APIBase    string
	DBPath     string
}

// Build 按顺序初始化存储、会话、传输与控制器；调用方负责 defer result.Store.Close()
// Build wires storage, session, transport and the controller in that order;
// caller must defer result.Store.Close()
func Build(cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dbPath := cfg.DBPath()
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	sessions := session.NewStore(store, cfg.Storage.SessionKey, logging.Component(logger, "session"))
	client := transport.NewClient(cfg.Backend, logging.Component(logger, "transport"))
	tr := i18n.New(cfg.UI.Locale)

	ctrl := controller.New(client, sessions, controller.Options{
		Log:        conversation.NewLog(),
		Translator: tr,
		Logger:     logging.Component(logger, "controller"),
	})

	logger.Info("bootstrap done",
		zap.String("api_base", client.BaseURL()),
		zap.String("db", dbPath),
		zap.String("locale", tr.Locale()),
		zap.Stringer("screen", ctrl.Screen()))

	return &BuildResult{
		Controller: ctrl,
		Client:     client,
		Store:      store,
		Sessions:   sessions,
		Translator: tr,
		APIBase:    client.BaseURL(),
		DBPath:     dbPath,
	}, nil
}
