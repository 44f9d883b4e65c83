package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/api"
	"github.com/BTreeMap/SupportPipe/internal/config"
	"github.com/BTreeMap/SupportPipe/internal/flow"
	"github.com/BTreeMap/SupportPipe/internal/genai"
	"github.com/BTreeMap/SupportPipe/internal/lockfile"
	"github.com/BTreeMap/SupportPipe/internal/messaging"
	"github.com/BTreeMap/SupportPipe/internal/records"
	"github.com/BTreeMap/SupportPipe/internal/store"
	"github.com/BTreeMap/SupportPipe/internal/transcript"
	"github.com/BTreeMap/SupportPipe/internal/twiliowhatsapp"
	"github.com/BTreeMap/SupportPipe/internal/util"
	"github.com/BTreeMap/SupportPipe/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SupportPipe state data
	DefaultStateDir = "/var/lib/supportpipe"
	// DefaultAppDBFileName is the default SQLite session database filename
	DefaultAppDBFileName = "supportpipe.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow device database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
	// DefaultOrdersFileName is the order store read by the order status flow
	DefaultOrdersFileName = "orders.csv"
	// DefaultContactsFileName is the contact store appended by the contact flow
	DefaultContactsFileName = "contacts.csv"
	// DefaultConversationLogFileName is the conversation log
	DefaultConversationLogFileName = "conversation.log"
)

// Messaging channels.
const (
	ChannelWeb      = "web"
	ChannelTwilio   = "twilio"
	ChannelWhatsApp = "whatsapp"
)

// Config holds environment configuration
type Config struct {
	StateDir          string
	ApplicationDBDSN  string
	WhatsAppDBDSN     string
	OpenAIKey         string
	OpenAIBaseURL     string
	GenAIModel        string
	GenAITimeout      time.Duration
	GenAIMaxRetries   int
	APIAddr           string
	OrdersCSV         string
	ContactsCSV       string
	ConversationLog   string
	MessagesFile      string
	Channel           string
	TwilioWebhookURL  string
	SupportDeskNumber string
	SecureCookies     bool
}

// Flags holds command line flag values
type Flags struct {
	qrOutput        *string
	numeric         *bool
	stateDir        *string
	dbDSN           *string
	waDBDSN         *string
	openaiKey       *string
	model           *string
	apiAddr         *string
	ordersCSV       *string
	contactsCSV     *string
	conversationLog *string
	messagesFile    *string
	channel         *string
}

func main() {
	initializeLogger(os.Getenv("LOG_LEVEL"))

	envConfig := loadEnvironmentConfig()
	flags := parseCommandLineFlags(envConfig)

	if err := run(envConfig, flags); err != nil {
		slog.Error("SupportPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SupportPipe exited successfully")
}

// initializeLogger sets up structured logging at the level named by level.
func initializeLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg := Config{
		StateDir:          os.Getenv("SUPPORTPIPE_STATE_DIR"),
		ApplicationDBDSN:  os.Getenv("DATABASE_URL"),
		WhatsAppDBDSN:     os.Getenv("WHATSAPP_DB_DSN"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		GenAIModel:        os.Getenv("GENAI_MODEL"),
		GenAITimeout:      util.ParseDurationEnv("GENAI_TIMEOUT", genai.DefaultTimeout),
		GenAIMaxRetries:   util.ParseIntEnv("GENAI_MAX_RETRIES", genai.DefaultMaxRetries),
		APIAddr:           os.Getenv("API_ADDR"),
		OrdersCSV:         os.Getenv("ORDERS_CSV"),
		ContactsCSV:       os.Getenv("CONTACTS_CSV"),
		ConversationLog:   os.Getenv("CONVERSATION_LOG"),
		MessagesFile:      os.Getenv("MESSAGES_FILE"),
		Channel:           strings.ToLower(os.Getenv("CHANNEL")),
		TwilioWebhookURL:  os.Getenv("TWILIO_WEBHOOK_URL"),
		SupportDeskNumber: os.Getenv("SUPPORT_DESK_NUMBER"),
		SecureCookies:     util.ParseBoolEnv("SECURE_COOKIES", false),
	}

	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir
		slog.Debug("No SUPPORTPIPE_STATE_DIR set, using default", "default_state_dir", cfg.StateDir)
	}
	applyStateDirDefaults(&cfg)
	if cfg.Channel == "" {
		cfg.Channel = ChannelWeb
	}

	slog.Debug("environment variables loaded",
		"SUPPORTPIPE_STATE_DIR", cfg.StateDir,
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"OPENAI_API_KEY_SET", cfg.OpenAIKey != "",
		"GENAI_MODEL", cfg.GenAIModel,
		"GENAI_TIMEOUT", cfg.GenAITimeout,
		"API_ADDR", cfg.APIAddr,
		"CHANNEL", cfg.Channel,
		"SUPPORT_DESK_NUMBER_SET", cfg.SupportDeskNumber != "")

	return cfg
}

// applyStateDirDefaults places every unset file path under the state directory.
func applyStateDirDefaults(cfg *Config) {
	if cfg.ApplicationDBDSN == "" {
		cfg.ApplicationDBDSN = filepath.Join(cfg.StateDir, DefaultAppDBFileName)
	}
	if cfg.WhatsAppDBDSN == "" {
		cfg.WhatsAppDBDSN = "file:" + filepath.Join(cfg.StateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}
	if cfg.OrdersCSV == "" {
		cfg.OrdersCSV = filepath.Join(cfg.StateDir, DefaultOrdersFileName)
	}
	if cfg.ContactsCSV == "" {
		cfg.ContactsCSV = filepath.Join(cfg.StateDir, DefaultContactsFileName)
	}
	if cfg.ConversationLog == "" {
		cfg.ConversationLog = filepath.Join(cfg.StateDir, DefaultConversationLogFileName)
	}
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(cfg Config) Flags {
	return parseFlags(flag.CommandLine, os.Args[1:], cfg)
}

func parseFlags(fs *flag.FlagSet, args []string, cfg Config) Flags {
	flags := Flags{
		qrOutput:        fs.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:         fs.Bool("numeric-code", false, "print the raw WhatsApp login code instead of a QR code"),
		stateDir:        fs.String("state-dir", cfg.StateDir, "state directory for SupportPipe data (overrides $SUPPORTPIPE_STATE_DIR)"),
		dbDSN:           fs.String("db-dsn", cfg.ApplicationDBDSN, "session database DSN; empty for in-memory (overrides $DATABASE_URL)"),
		waDBDSN:         fs.String("whatsapp-db-dsn", cfg.WhatsAppDBDSN, "whatsmeow device database DSN (overrides $WHATSAPP_DB_DSN)"),
		openaiKey:       fs.String("openai-api-key", cfg.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		model:           fs.String("model", cfg.GenAIModel, "chat model (overrides $GENAI_MODEL)"),
		apiAddr:         fs.String("api-addr", cfg.APIAddr, "API server address (overrides $API_ADDR)"),
		ordersCSV:       fs.String("orders", cfg.OrdersCSV, "order store CSV (overrides $ORDERS_CSV)"),
		contactsCSV:     fs.String("contacts", cfg.ContactsCSV, "contact store CSV (overrides $CONTACTS_CSV)"),
		conversationLog: fs.String("conversation-log", cfg.ConversationLog, "conversation log file (overrides $CONVERSATION_LOG)"),
		messagesFile:    fs.String("messages", cfg.MessagesFile, "YAML message catalogue; built-in when empty (overrides $MESSAGES_FILE)"),
		channel:         fs.String("channel", cfg.Channel, "messaging channel: web, twilio or whatsapp (overrides $CHANNEL)"),
	}
	fs.Parse(args)

	// Re-derive state-dir defaults when only the state directory was overridden.
	if *flags.stateDir != cfg.StateDir {
		moved := Config{StateDir: *flags.stateDir}
		applyStateDirDefaults(&moved)
		base := Config{StateDir: cfg.StateDir}
		applyStateDirDefaults(&base)
		for _, p := range []struct {
			flag          *string
			base, derived string
		}{
			{flags.dbDSN, base.ApplicationDBDSN, moved.ApplicationDBDSN},
			{flags.waDBDSN, base.WhatsAppDBDSN, moved.WhatsAppDBDSN},
			{flags.ordersCSV, base.OrdersCSV, moved.OrdersCSV},
			{flags.contactsCSV, base.ContactsCSV, moved.ContactsCSV},
			{flags.conversationLog, base.ConversationLog, moved.ConversationLog},
		} {
			if *p.flag == p.base {
				*p.flag = p.derived
			}
		}
		slog.Debug("Updated file paths based on state directory", "state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"channel", *flags.channel,
		"messagesFile", *flags.messagesFile)
	return flags
}

// ensureDirectoriesExist creates the state directory and the parents of file-based stores.
func ensureDirectoriesExist(flags Flags) error {
	dirs := []string{*flags.stateDir, filepath.Dir(*flags.contactsCSV), filepath.Dir(*flags.conversationLog)}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(cfg Config, flags Flags) []genai.Option {
	genaiOpts := []genai.Option{genai.WithTimeout(cfg.GenAITimeout), genai.WithMaxRetries(cfg.GenAIMaxRetries)}
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.model))
	}
	if cfg.OpenAIBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return genaiOpts
}

// buildWhatsAppOptions constructs WhatsApp configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if *flags.waDBDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.waDBDSN))
	}
	return waOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(cfg Config, flags Flags) []api.Option {
	apiOpts := []api.Option{api.WithSecureCookies(cfg.SecureCookies)}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// buildMessagingService connects the configured channel. The web channel has none.
func buildMessagingService(ctx context.Context, cfg Config, flags Flags) (messaging.Service, []api.Option, error) {
	switch *flags.channel {
	case ChannelWeb:
		return nil, nil, nil
	case ChannelTwilio:
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, fmt.Errorf("twilio client: %w", err)
		}
		var opts []messaging.TwilioOption
		if cfg.TwilioWebhookURL != "" {
			opts = append(opts, messaging.WithWebhookValidation(client.SignatureValidator(), cfg.TwilioWebhookURL))
		}
		svc := messaging.NewTwilioService(client, opts...)
		return svc, []api.Option{api.WithTwilioWebhook(svc.TwilioWebhookHandler)}, nil
	case ChannelWhatsApp:
		client, err := whatsapp.NewClient(ctx, buildWhatsAppOptions(flags)...)
		if err != nil {
			return nil, nil, fmt.Errorf("whatsapp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown channel %q (want %s, %s or %s)", *flags.channel, ChannelWeb, ChannelTwilio, ChannelWhatsApp)
	}
}

func run(cfg Config, flags Flags) error {
	if err := ensureDirectoriesExist(flags); err != nil {
		return err
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		var lockErr *lockfile.LockError
		if errors.As(err, &lockErr) {
			slog.Error("SupportPipe is already running", "lock_path", lockErr.LockPath, "holder", lockErr.ExistingInfo)
		}
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	msgs, err := config.LoadOrDefault(*flags.messagesFile)
	if err != nil {
		return err
	}

	st, err := store.New(buildStoreOptions(flags)...)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	gaClient, err := genai.NewClient(buildGenAIOptions(cfg, flags)...)
	if err != nil {
		return fmt.Errorf("genai client: %w", err)
	}

	convLog, err := transcript.NewLogger(*flags.conversationLog)
	if err != nil {
		return fmt.Errorf("conversation log: %w", err)
	}

	svc, channelAPIOpts, err := buildMessagingService(ctx, cfg, flags)
	if err != nil {
		return err
	}

	deps := flow.Dependencies{
		StateManager: flow.NewStoreBasedStateManager(st),
		Classifier:   flow.NewGenAIClassifier(gaClient),
		Responder:    flow.NewGenAIResponder(gaClient, msgs.Default.BotPrompt, msgs.Errors.NoInternet, msgs.HistoryWindow()),
		Orders:       records.NewCSVOrderStore(*flags.ordersCSV),
		Contacts:     records.NewCSVContactStore(*flags.contactsCSV),
		Messages:     msgs,
		Transcript:   convLog,
	}

	if svc != nil {
		if cfg.SupportDeskNumber != "" {
			deps.Notifier = messaging.NewDeskNotifier(st, cfg.SupportDeskNumber)
			sender := store.NewOutboxSender(st, messaging.OutboxSendFunc(svc), store.DefaultOutboxPollInterval)
			if err := sender.RecoverStaleMessages(); err != nil {
				slog.Warn("Failed to recover stale outbox messages", "error", err)
			}
			go sender.Run(ctx)
		} else {
			slog.Info("SUPPORT_DESK_NUMBER not set, handoff notifications disabled")
		}
	}

	supportFlow, err := flow.NewSupportFlow(deps)
	if err != nil {
		return err
	}

	if svc != nil {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("start %s service: %w", svc.Name(), err)
		}
		defer svc.Stop()
		messaging.NewResponseHandler(svc, supportFlow, st).Start(ctx)
	}

	server := api.NewServer(supportFlow, append(buildAPIOptions(cfg, flags), channelAPIOpts...)...)
	slog.Info("Bootstrapping SupportPipe",
		"channel", *flags.channel,
		"orders", *flags.ordersCSV,
		"contacts", *flags.contactsCSV,
		"conversation_log", convLog.Path(),
		"api_addr", server.Addr())
	return server.Run(ctx)
}
