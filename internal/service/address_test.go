package service

import (
	"github.com/prometheus/client_golang/prometheus/testutil"

	"offender-movements/internal/metrics"
	"offender-movements/internal/models"
	"offender-movements/pkg/sentinel"
)

func (s *serviceSuite) TestResolveAddressByOwnerClass() {
	corporate := models.Corporate{Name: "Acme Recycling"}
	s.Require().NoError(s.agencies.CreateCorporate(s.ctx, &corporate))

	offenderAddress := s.createAddress(models.Address{
		OwnerClass: models.OwnerClassOffender,
		OwnerID:    ptr(s.offender.ID),
		Street:     "1 Main Street",
	})
	corporateAddress := s.createAddress(models.Address{
		OwnerClass: models.OwnerClassCorporate,
		OwnerID:    ptr(corporate.ID),
		Street:     "Unit 4, Industrial Estate",
	})
	agencyAddress := s.createAddress(models.Address{
		OwnerClass: models.OwnerClassAgency,
		OwnerCode:  ptr("HAZLWD"),
		Street:     "Hazelwood Lane",
	})

	tests := []struct {
		name    string
		address models.Address
		class   models.OwnerClass
		kind    models.OwnerKind
	}{
		{"offender", offenderAddress, models.OwnerClassOffender, models.OwnerKindOffender},
		{"corporate", corporateAddress, models.OwnerClassCorporate, models.OwnerKindCorporate},
		{"agency", agencyAddress, models.OwnerClassAgency, models.OwnerKindAgency},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resolved, err := s.resolver.Resolve(s.ctx, models.AddressOwnerReference{
				AddressID:  ptr(tt.address.ID),
				OwnerClass: tt.class,
			})
			s.Require().NoError(err)
			s.Require().NotNil(resolved)
			s.Equal(tt.address.ID, resolved.Address.ID)
			s.Equal(tt.kind, resolved.OwnerKind)
			s.Equal(tt.class, resolved.RawOwnerClass)
			s.False(resolved.Malformed)
		})
	}
}

func (s *serviceSuite) TestResolveAddressMalformedOwnerClass() {
	agencyAddress := s.createAddress(models.Address{
		OwnerClass: models.OwnerClassAgency,
		OwnerCode:  ptr("HAZLWD"),
		Street:     "Hazelwood Lane",
	})

	resolved, err := s.resolver.Resolve(s.ctx, models.AddressOwnerReference{
		AddressID:  ptr(agencyAddress.ID),
		OwnerClass: "HAZLWD",
	})
	s.Require().NoError(err)
	s.Require().NotNil(resolved)
	s.Equal(agencyAddress.ID, resolved.Address.ID)
	s.Equal(models.OwnerKindAgency, resolved.OwnerKind)
	s.Equal(models.OwnerClass("HAZLWD"), resolved.RawOwnerClass)
	s.True(resolved.Malformed)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DataAnomalies.WithLabelValues(metrics.AnomalyMalformedOwner)))
}

func (s *serviceSuite) TestResolveAddressWrongOwnerClass() {
	offenderAddress := s.createAddress(models.Address{
		OwnerClass: models.OwnerClassOffender,
		OwnerID:    ptr(s.offender.ID),
	})

	_, err := s.resolver.Resolve(s.ctx, models.AddressOwnerReference{
		AddressID:  ptr(offenderAddress.ID),
		OwnerClass: models.OwnerClassCorporate,
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *serviceSuite) TestResolveEmptyReference() {
	resolved, err := s.resolver.Resolve(s.ctx, models.AddressOwnerReference{OwnerClass: models.OwnerClassOffender})
	s.NoError(err)
	s.Nil(resolved)
}

func (s *serviceSuite) TestReferenceDataLookup() {
	code, err := s.refData.Lookup(s.ctx, models.DomainMovementReason, "C5")
	s.Require().NoError(err)
	s.Equal("Paid Work - Day Release", code.Description)
	s.True(code.ActiveFlag)

	_, err = s.refData.Lookup(s.ctx, models.DomainMovementReason, "C99")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.refData.Require(s.ctx, models.DomainEscort, ""), sentinel.ErrInvalidInput)
	s.NoError(s.refData.RequireOptional(s.ctx, models.DomainEscort, ""))
	s.ErrorIs(s.refData.RequireAgency(s.ctx, "ZZZ"), sentinel.ErrNotFound)
}

func (s *serviceSuite) TestLoadSeedIsIdempotent() {
	first, err := s.refData.LoadSeed(s.ctx, seedPath)
	s.Require().NoError(err)
	second, err := s.refData.LoadSeed(s.ctx, seedPath)
	s.Require().NoError(err)
	s.Equal(first, second)

	_, err = s.refData.LoadSeed(s.ctx, "does-not-exist.yaml")
	s.Error(err)
}
