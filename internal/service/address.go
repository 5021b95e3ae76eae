package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"offender-movements/internal/metrics"
	"offender-movements/internal/models"
	"offender-movements/internal/repository"
)

// ResolvedAddress is an address plus the discriminator it was referenced by.
// RawOwnerClass is passed through untouched, including malformed values.
type ResolvedAddress struct {
	Address       *models.Address   `json:"address"`
	OwnerKind     models.OwnerKind  `json:"owner_kind"`
	RawOwnerClass models.OwnerClass `json:"raw_owner_class"`
	Malformed     bool              `json:"malformed_owner_class"`
}

type AddressResolver struct {
	addresses repository.AddressRepository
	metrics   *metrics.Metrics
	logger    *logrus.Logger
}

func NewAddressResolver(addresses repository.AddressRepository, m *metrics.Metrics, logger *logrus.Logger) *AddressResolver {
	return &AddressResolver{
		addresses: addresses,
		metrics:   m,
		logger:    logger,
	}
}

// Resolve returns nil for an empty reference. A known owner class is looked up
// in that owner's store. An unknown owner class (legacy rows sometimes hold an
// agency code there) falls back to the address id alone, and the address's own
// type decides OwnerKind.
func (r *AddressResolver) Resolve(ctx context.Context, ref models.AddressOwnerReference) (*ResolvedAddress, error) {
	if ref.IsEmpty() {
		return nil, nil
	}

	kind := ref.OwnerClass.Kind()
	var (
		address *models.Address
		err     error
	)
	if kind == models.OwnerKindMalformed {
		r.logger.WithFields(logrus.Fields{
			"address_id":  *ref.AddressID,
			"owner_class": ref.OwnerClass,
		}).Warn("Malformed address owner class, resolving by address id")
		r.metrics.IncAnomaly(metrics.AnomalyMalformedOwner)
		address, err = r.addresses.GetByID(ctx, *ref.AddressID)
	} else {
		address, err = r.addresses.GetByIDAndOwnerClass(ctx, *ref.AddressID, kind.Class())
	}
	if err != nil {
		return nil, err
	}

	return &ResolvedAddress{
		Address:       address,
		OwnerKind:     address.OwnerKind(),
		RawOwnerClass: ref.OwnerClass,
		Malformed:     kind == models.OwnerKindMalformed,
	}, nil
}
