package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/recoverly/recovery-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createUsersTable(),
		createEventsTable(),
		createClicksTable(),
		createWebhookLogsTable(),
	})

	return m.Migrate()
}

func createUsersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_users",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.UserModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.UserModel{})
		},
	}
}

func createEventsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_events",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.EventModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_events_user_type_occurred ON events (user_id, type, occurred_at)`,
				`CREATE INDEX IF NOT EXISTS idx_events_recovered ON events (user_id, reason) WHERE recovered`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.EventModel{})
		},
	}
}

func createClicksTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_clicks",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ClickModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_clicks_user_clicked ON clicks (user_id, clicked_at DESC)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ClickModel{})
		},
	}
}

func createWebhookLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_webhook_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.WebhookLogModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_logs_provider_event_id ON webhook_logs (provider_event_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.WebhookLogModel{})
		},
	}
}
