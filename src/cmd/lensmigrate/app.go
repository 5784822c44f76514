package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kingpin"
	"github.com/sirupsen/logrus"

	"github.com/lensapp/storemigrate/src/configs"
	"github.com/lensapp/storemigrate/src/consts"
	"github.com/lensapp/storemigrate/src/log"
	"github.com/lensapp/storemigrate/src/metrics"
	"github.com/lensapp/storemigrate/src/pkg/metadata"
	"github.com/lensapp/storemigrate/src/pkg/migration"
	lenssentry "github.com/lensapp/storemigrate/src/pkg/sentry"
	"github.com/lensapp/storemigrate/src/stores"
	"github.com/lensapp/storemigrate/src/stores/clusters"
)

// errMigrationFailed 迁移失败，详情已输出
var errMigrationFailed = errors.New("migration failed")

type app struct {
	out    io.Writer
	errOut io.Writer

	configFile string
	appData    string
	debug      bool

	storeKind string
	parallel  bool
	limit     int
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

func (a *app) run(args []string) int {
	cmd := kingpin.New(consts.AppName, "Upgrade Lens on-disk stores to the current version.")
	cmd.UsageWriter(a.out)
	cmd.ErrorWriter(a.errOut)
	cmd.Flag("config", "配置文件路径").Short('c').StringVar(&a.configFile)
	cmd.Flag("appdata", "Lens 用户数据目录").StringVar(&a.appData)
	cmd.Flag("debug", "输出调试日志").BoolVar(&a.debug)

	migrate := cmd.Command("migrate", "Run pending migrations.").Default()
	migrate.Flag("store", "只迁移指定的存储类型").StringVar(&a.storeKind)
	migrate.Flag("parallel", "不同存储类型之间并行迁移").BoolVar(&a.parallel)
	migrate.Action(a.migrate)

	status := cmd.Command("status", "Show recorded and latest version of every store.")
	status.Flag("history", "显示最近的迁移记录条数").Default("5").IntVar(&a.limit)
	status.Action(a.status)

	cmd.Command("versions", "List declared migrations.").Action(a.versions)

	if _, err := cmd.Parse(args); err != nil {
		if !errors.Is(err, errMigrationFailed) {
			fmt.Fprintf(a.errOut, "%s: %v\n", consts.AppName, err)
		}
		return 1
	}
	return 0
}

func (a *app) loadConfig() (*configs.Config, error) {
	if err := configs.LoadDotEnv(); err != nil {
		return nil, err
	}
	var cfg *configs.Config
	if a.configFile != "" {
		c, err := configs.NewConfigWithFile(a.configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = configs.NewConfig()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	// 命令行参数优先级最高
	if a.appData != "" {
		cfg.AppDataPath = a.appData
	}
	if a.debug {
		cfg.Debug = true
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	configs.SetCurrentConfig(cfg)
	return cfg, nil
}

// setup 加载配置并初始化日志、Sentry 与元数据库
// 返回的函数用于释放资源
func (a *app) setup() (*configs.Config, *logrus.Logger, func(), error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closer, err := log.New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.Sentry.DSN != "" {
		environment := cfg.Sentry.Environment
		if cfg.Debug {
			environment = "development"
		}
		if err := lenssentry.Init(cfg.Sentry.DSN, environment, consts.AppVersion); err != nil {
			// Sentry 初始化失败不影响迁移
			logger.WithError(err).Warn("failed to init sentry")
		}
	}

	if err := metadata.Init(filepath.Join(cfg.AppDataPath, "db")); err != nil {
		logger.WithError(err).Warn("failed to open metadata store, migration history disabled")
	}

	logger.Debugf("%+v", consts.GetAppInfo())
	logger.Debugf("%+v", cfg)

	cleanup := func() {
		_ = metadata.Close()
		logger.SetOutput(os.Stderr)
		_ = closer.Close()
	}
	return cfg, logger, cleanup, nil
}

func (a *app) migrate(*kingpin.ParseContext) error {
	cfg, logger, cleanup, err := a.setup()
	if err != nil {
		return err
	}
	defer cleanup()

	collector := metrics.New()
	schemas, err := stores.NewSchemaRegistry(stores.Deps{
		AppDataPath: cfg.AppDataPath,
		OnRelocationConflict: func(kind migration.StoreKind, _ clusters.Relocation) {
			collector.RelocationConflict(kind)
		},
	})
	if err != nil {
		return err
	}

	kinds := schemas.List()
	if a.storeKind != "" {
		kinds = []migration.StoreKind{migration.StoreKind(a.storeKind)}
	}

	observers := []migration.Observer{collector}
	if store := metadata.GetStore(); store != nil {
		observers = append(observers, stores.NewHistoryObserver(store))
	}

	failed := false
	opened := make(map[migration.StoreKind]migration.Store, len(kinds))
	batch := migration.NewBatchMigrator()
	for _, kind := range kinds {
		schema, err := schemas.Get(kind)
		if err != nil {
			return err
		}
		doc, err := stores.OpenStore(cfg.AppDataPath, schema)
		if err != nil {
			// 无法读取的存储不迁移，其他存储照常进行
			failed = true
			a.reportFailure(kind, err)
			continue
		}
		opened[kind] = doc
		batch.Add(&migration.MigrationConfig{
			Schema:      schema,
			Store:       doc,
			ForceBackup: cfg.Migration.ForceBackup,
			Observers:   observers,
		})
	}

	result := batch.Run(context.Background(), a.parallel || cfg.Migration.Parallel)
	for _, kind := range kinds {
		res, ok := result.Results[kind]
		if !ok {
			continue
		}
		if res.Success {
			fmt.Fprintf(a.out, "%s: %s -> %s (%d applied)\n", kind, displayVersion(res.FromVersion), displayVersion(res.ToVersion), len(res.Applied))
		}
	}
	for _, err := range result.Errors {
		failed = true
		a.reportFailure("", err)
	}
	for kind, doc := range opened {
		collector.SetRecordedVersion(kind, doc.RecordedVersion())
	}

	if store := metadata.GetStore(); store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Set(ctx, metadata.NamespaceMigration, metadata.KeyLastRun, time.Now().Format(time.RFC3339)); err != nil {
			logger.WithError(err).Warn("failed to record last run")
		}
	}
	if cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.WithError(err).Warn("failed to write metrics textfile")
		}
	}

	if failed {
		return errMigrationFailed
	}
	return nil
}

// reportFailure 输出失败的存储类型与版本，并上报 Sentry
func (a *app) reportFailure(kind migration.StoreKind, err error) {
	version := ""
	var migrationErr *migration.MigrationError
	if errors.As(err, &migrationErr) {
		kind = migrationErr.StoreKind
		version = migrationErr.Version.String()
	}
	switch {
	case version != "":
		fmt.Fprintf(a.errOut, "%s: migration %s failed: %v\n", kind, version, err)
	case kind != "":
		fmt.Fprintf(a.errOut, "%s: %v\n", kind, err)
	default:
		fmt.Fprintln(a.errOut, err)
	}
	lenssentry.CaptureStoreError(string(kind), version, err)
}

func (a *app) status(*kingpin.ParseContext) error {
	cfg, _, cleanup, err := a.setup()
	if err != nil {
		return err
	}
	defer cleanup()

	schemas, err := stores.NewSchemaRegistry(stores.Deps{AppDataPath: cfg.AppDataPath})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STORE\tFILE\tRECORDED\tLATEST\tPENDING\tLOCKED\tBACKUP")
	for _, kind := range schemas.List() {
		schema, err := schemas.Get(kind)
		if err != nil {
			return err
		}
		doc, err := stores.OpenStore(cfg.AppDataPath, schema)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t-\t-\t-\n", kind, schema.FileName, "unreadable", displayVersion(schema.Registry.Latest()))
			continue
		}
		recorded := doc.RecordedVersion()
		locked := migration.NewLockManager(doc.Path()).IsLocked()
		backup, err := migration.NewBackupManager(doc.Path()).GetLatestBackup()
		if err != nil {
			return err
		}
		if backup == "" {
			backup = "-"
		} else {
			backup = filepath.Base(backup)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\t%s\n", kind, schema.FileName, displayVersion(recorded),
			displayVersion(schema.Registry.Latest()), len(schema.Registry.Pending(recorded)), locked, backup)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	store := metadata.GetStore()
	if store == nil || a.limit <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	history, err := store.History(ctx, "", a.limit)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}
	fmt.Fprintln(a.out)
	w = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTORE\tVERSION\tSTATUS\tDURATION")
	for _, h := range history {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", h.CreatedAt.Local().Format("2006-01-02 15:04:05"), h.StoreKind, h.Version, h.Status, h.Duration)
	}
	return w.Flush()
}

func (a *app) versions(*kingpin.ParseContext) error {
	schemas, err := stores.NewSchemaRegistry(stores.Deps{})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STORE\tVERSION\tDESCRIPTION")
	for _, kind := range schemas.List() {
		schema, err := schemas.Get(kind)
		if err != nil {
			return err
		}
		for _, d := range schema.Registry.Declarations() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", kind, d.Version, d.Description)
		}
	}
	return w.Flush()
}

func displayVersion(v migration.Version) string {
	if v.IsZero() {
		return "none"
	}
	return v.String()
}
