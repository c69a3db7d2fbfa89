package services

import (
	"fmt"
	"log"
	"time"

	"ain_oman_legal/config"
	"ain_oman_legal/db"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Options tunes NewLegalServices. Zero values pick the defaults.
type Options struct {
	Clock      func() time.Time
	Registerer prometheus.Registerer
	Metrics    *Metrics // Takes precedence over Registerer
	Notifier   Notifier
	Currency   string
	Insights   InsightStrategy
	Predictor  PredictionStrategy
}

// LegalServices bundles one record store, one allocator and every manager built on them
type LegalServices struct {
	Storage      ResourceStorage
	Store        *RecordStore
	Sequence     *SequenceAllocator
	Metrics      *Metrics
	Notifier     Notifier
	Cases        *CaseService
	Audit        *AuditService
	Transfers    *TransferService
	Tasks        *TaskService
	Appointments *AppointmentService
	Contacts     *ContactService
	Workflows    *WorkflowService
	Analytics    *AnalyticsService
	Predictions  *PredictionService
	Reports      *ReportService

	db *gorm.DB
}

// NewLegalServices wires the managers over storage
func NewLegalServices(storage ResourceStorage, opts Options) *LegalServices {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(opts.Registerer)
	}
	storeOpts := []StoreOption{WithMetrics(metrics)}
	if opts.Clock != nil {
		storeOpts = append(storeOpts, WithClock(opts.Clock))
	}
	store := NewRecordStore(storage, storeOpts...)
	seq := NewSequenceAllocator(storage, metrics)
	tasks := NewTaskService(store, seq)

	return &LegalServices{
		Storage:      storage,
		Store:        store,
		Sequence:     seq,
		Metrics:      metrics,
		Notifier:     opts.Notifier,
		Cases:        NewCaseService(store, seq, opts.Insights, NewSanitizer(), opts.Currency),
		Audit:        NewAuditService(store),
		Transfers:    NewTransferService(store, seq, opts.Notifier),
		Tasks:        tasks,
		Appointments: NewAppointmentService(store),
		Contacts:     NewContactService(store),
		Workflows:    NewWorkflowService(store, tasks),
		Analytics:    NewAnalyticsService(store),
		Predictions:  NewPredictionService(store, opts.Predictor),
		Reports:      NewReportService(store),
	}
}

// Open builds the storage selected by cfg (opening the SQL connection when needed)
// and wires the services with an email notifier.
func Open(cfg *config.Config, reg prometheus.Registerer) (*LegalServices, error) {
	var sqlStore *GormStorage
	var database *gorm.DB

	switch cfg.StorageDriver {
	case config.StorageDriverSQLite, config.StorageDriverLibSQL, config.StorageDriverPostgres:
		dsn := cfg.DBPath
		switch cfg.StorageDriver {
		case config.StorageDriverLibSQL:
			dsn = cfg.TursoDatabaseURL
		case config.StorageDriverPostgres:
			dsn = cfg.PostgresDSN
		}
		var err error
		database, err = db.Open(db.Options{
			Driver:      cfg.StorageDriver,
			DSN:         dsn,
			AuthToken:   cfg.TursoAuthToken,
			Environment: cfg.Environment,
		})
		if err != nil {
			return nil, err
		}
		sqlStore, err = NewGormStorage(database)
		if err != nil {
			_ = db.Close(database)
			return nil, err
		}
	}

	storage, err := NewResourceStorage(cfg, sqlStore)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	metrics := NewMetrics(reg)
	svc := NewLegalServices(storage, Options{
		Metrics:  metrics,
		Currency: cfg.DefaultCurrency,
		Notifier: NewEmailNotifier(cfg, metrics),
	})
	svc.db = database

	log.Printf("[STORE] Legal services ready on %s", storage.Name())
	return svc, nil
}

// Close releases the SQL connection, if any
func (l *LegalServices) Close() error {
	return db.Close(l.db)
}
