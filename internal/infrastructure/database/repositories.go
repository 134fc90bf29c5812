package database

import (
	"github.com/familu/entitlement-service/internal/adapter/repository"
	domainRepo "github.com/familu/entitlement-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Category        domainRepo.CategoryRepository
	OneTime         domainRepo.OneTimeEntitlementRepository
	Subscription    domainRepo.SubscriptionEntitlementRepository
	CustomerMapping domainRepo.CustomerMappingRepository
	Directory       domainRepo.DirectoryRepository
	Webhook         repository.WebhookRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Category:        repository.NewCategoryRepository(db, logger),
		OneTime:         repository.NewOneTimeEntitlementRepository(db, logger),
		Subscription:    repository.NewSubscriptionEntitlementRepository(db, logger),
		CustomerMapping: repository.NewCustomerMappingRepository(db, logger),
		Directory:       repository.NewDirectoryRepository(db, logger),
		Webhook:         repository.NewWebhookRepository(db, logger),
	}
}
