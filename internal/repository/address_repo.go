package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"offender-movements/internal/database"
	"offender-movements/internal/models"
)

type AddressRepository interface {
	Create(ctx context.Context, address *models.Address) error
	GetByID(ctx context.Context, id int64) (*models.Address, error)
	GetByIDAndOwnerClass(ctx context.Context, id int64, ownerClass models.OwnerClass) (*models.Address, error)
	ListByOwner(ctx context.Context, ownerClass models.OwnerClass, ownerID int64) ([]models.Address, error)
}

type GormAddressRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormAddressRepository(db *gorm.DB, logger *logrus.Logger) (AddressRepository, error) {
	if err := db.AutoMigrate(&models.Address{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate addresses table")
		return nil, err
	}
	return &GormAddressRepository{db: db, logger: logger}, nil
}

func (r *GormAddressRepository) Create(ctx context.Context, address *models.Address) error {
	if !address.IsValid() {
		r.logger.WithFields(logrus.Fields{
			"owner_class": address.OwnerClass,
		}).Warn("Invalid address owner")
		return fmt.Errorf("address owner does not match owner class %q", address.OwnerClass)
	}
	return translate(database.Conn(ctx, r.db).Create(address).Error)
}

func (r *GormAddressRepository) GetByID(ctx context.Context, id int64) (*models.Address, error) {
	var address models.Address
	if err := database.Conn(ctx, r.db).First(&address, id).Error; err != nil {
		return nil, fmt.Errorf("address %d: %w", id, translate(err))
	}
	return &address, nil
}

// GetByIDAndOwnerClass looks the address up in the store of one owner class.
func (r *GormAddressRepository) GetByIDAndOwnerClass(ctx context.Context, id int64, ownerClass models.OwnerClass) (*models.Address, error) {
	var address models.Address
	err := database.Conn(ctx, r.db).
		Where("id = ? AND owner_class = ?", id, ownerClass).
		First(&address).Error
	if err != nil {
		return nil, fmt.Errorf("%s address %d: %w", ownerClass, id, translate(err))
	}
	return &address, nil
}

func (r *GormAddressRepository) ListByOwner(ctx context.Context, ownerClass models.OwnerClass, ownerID int64) ([]models.Address, error) {
	var addresses []models.Address
	err := database.Conn(ctx, r.db).
		Where("owner_class = ? AND owner_id = ?", ownerClass, ownerID).
		Order("id").
		Find(&addresses).Error
	return addresses, err
}
