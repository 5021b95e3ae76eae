package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"offender-movements/internal/database"
	"offender-movements/internal/models"
	"offender-movements/internal/repository"
	"offender-movements/pkg/refdata"
	"offender-movements/pkg/sentinel"
)

// ReferenceDataService resolves coded vocabularies. A code that does not
// resolve is a configuration defect and is reported as sentinel.ErrNotFound.
type ReferenceDataService struct {
	codes    repository.ReferenceCodeRepository
	agencies repository.AgencyRepository
	tx       database.Transactor
	logger   *logrus.Logger
}

func NewReferenceDataService(
	codes repository.ReferenceCodeRepository,
	agencies repository.AgencyRepository,
	tx database.Transactor,
	logger *logrus.Logger,
) *ReferenceDataService {
	return &ReferenceDataService{
		codes:    codes,
		agencies: agencies,
		tx:       tx,
		logger:   logger,
	}
}

// codeCheck is one (domain, code) pair to validate. Optional checks pass
// when the code is empty.
type codeCheck struct {
	domain   string
	code     string
	optional bool
}

func required(domain, code string) codeCheck { return codeCheck{domain: domain, code: code} }

func optional(domain, code string) codeCheck {
	return codeCheck{domain: domain, code: code, optional: true}
}

func (s *ReferenceDataService) Lookup(ctx context.Context, domain, code string) (*models.ReferenceCode, error) {
	rc, err := s.codes.Get(ctx, domain, code)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"domain": domain,
			"code":   code,
		}).Warn("Reference code lookup failed")
		return nil, err
	}
	return rc, nil
}

// Require fails when code is empty or does not exist in domain.
func (s *ReferenceDataService) Require(ctx context.Context, domain, code string) error {
	return s.check(ctx, required(domain, code))
}

// RequireOptional fails only when a non-empty code does not exist in domain.
func (s *ReferenceDataService) RequireOptional(ctx context.Context, domain, code string) error {
	return s.check(ctx, optional(domain, code))
}

func (s *ReferenceDataService) check(ctx context.Context, c codeCheck) error {
	if c.code == "" {
		if c.optional {
			return nil
		}
		return fmt.Errorf("%w: %s code is required", sentinel.ErrInvalidInput, c.domain)
	}
	_, err := s.Lookup(ctx, c.domain, c.code)
	return err
}

func (s *ReferenceDataService) checkAll(ctx context.Context, checks ...codeCheck) error {
	for _, c := range checks {
		if err := s.check(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// RequireAgency fails when the agency location does not exist.
func (s *ReferenceDataService) RequireAgency(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: agency location is required", sentinel.ErrInvalidInput)
	}
	if _, err := s.agencies.GetLocation(ctx, id); err != nil {
		s.logger.WithField("agency_location_id", id).Warn("Agency location lookup failed")
		return err
	}
	return nil
}

func (s *ReferenceDataService) requireOptionalAgencies(ctx context.Context, ids ...*string) error {
	for _, id := range ids {
		if id == nil || *id == "" {
			continue
		}
		if err := s.RequireAgency(ctx, *id); err != nil {
			return err
		}
	}
	return nil
}

// LoadSeed upserts the reference codes and agency locations of a YAML seed
// file in one transaction and returns the number of codes loaded.
func (s *ReferenceDataService) LoadSeed(ctx context.Context, path string) (int, error) {
	seed, err := refdata.ParseFile(path)
	if err != nil {
		return 0, err
	}

	flat := seed.Flatten()
	codes := make([]models.ReferenceCode, 0, len(flat))
	for _, c := range flat {
		codes = append(codes, models.ReferenceCode{
			Domain:      c.Domain,
			Code:        c.Code,
			Description: c.Description,
			ActiveFlag:  c.Active,
			ListSeq:     c.ListSeq,
		})
	}

	locations := make([]models.AgencyLocation, 0, len(seed.Agencies))
	for _, a := range seed.Agencies {
		locations = append(locations, models.AgencyLocation{
			ID:          a.ID,
			Description: a.Description,
			Type:        a.Type,
			Active:      !a.Inactive,
		})
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.codes.Upsert(ctx, codes); err != nil {
			return err
		}
		return s.agencies.UpsertLocations(ctx, locations)
	})
	if err != nil {
		return 0, fmt.Errorf("load reference data seed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":     path,
		"codes":    len(codes),
		"agencies": len(locations),
	}).Info("Reference data seed loaded")
	return len(codes), nil
}
