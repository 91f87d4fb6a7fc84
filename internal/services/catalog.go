package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/munreg/internal/errors"
	"github.com/abrezinsky/munreg/internal/logger"
	"github.com/abrezinsky/munreg/internal/models"
	"github.com/abrezinsky/munreg/internal/repository"
)

// CatalogServiceRepository defines the repository methods needed by CatalogService
type CatalogServiceRepository interface {
	repository.CommitteeRepository
	CountAssigned(ctx context.Context) (int, error)
}

// CatalogService handles the committee catalog
type CatalogService struct {
	log  logger.Logger
	repo CatalogServiceRepository
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(log logger.Logger, repo CatalogServiceRepository) *CatalogService {
	return &CatalogService{log: log, repo: repo}
}

// SeedResult reports what a catalog seed wrote
type SeedResult struct {
	Committees int `json:"committees"`
	Seats      int `json:"seats"`
}

// catalogFile is the YAML layout accepted by ParseCatalog
type catalogFile struct {
	Committees []models.Committee `yaml:"committees"`
}

// ParseCatalog decodes a YAML catalog:
//
//	committees:
//	  - id: unsc
//	    name: Security Council
//	    countries: [USA, France]
func ParseCatalog(r io.Reader) ([]models.Committee, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyCatalog
		}
		return nil, errors.Wrap(err, errors.ErrValidation, "invalid catalog file")
	}
	return file.Committees, nil
}

// LoadCatalogFile reads and parses a YAML catalog from path
func LoadCatalogFile(path string) ([]models.Committee, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// ValidateCatalog checks ids are present and unique and that no committee
// lists a country twice. Names default to the id.
func ValidateCatalog(committees []models.Committee) ([]models.Committee, error) {
	if len(committees) == 0 {
		return nil, ErrEmptyCatalog
	}

	out := make([]models.Committee, 0, len(committees))
	ids := make(map[string]bool, len(committees))
	for i, c := range committees {
		c.ID = strings.TrimSpace(c.ID)
		c.Name = strings.TrimSpace(c.Name)
		if c.ID == "" {
			return nil, errors.Validationf("committee #%d has no id", i+1)
		}
		if ids[c.ID] {
			return nil, errors.Validationf("duplicate committee id %q", c.ID)
		}
		ids[c.ID] = true
		if c.Name == "" {
			c.Name = c.ID
		}

		countries := make([]string, 0, len(c.Countries))
		seen := make(map[string]bool, len(c.Countries))
		for _, country := range c.Countries {
			country = strings.TrimSpace(country)
			if country == "" {
				return nil, errors.Validationf("committee %q lists an empty country", c.ID)
			}
			if seen[country] {
				return nil, errors.Validationf("committee %q lists %q twice", c.ID, country)
			}
			seen[country] = true
			countries = append(countries, country)
		}
		c.Countries = countries
		out = append(out, c)
	}
	return out, nil
}

// ListCommittees returns the catalog in display order
func (s *CatalogService) ListCommittees(ctx context.Context) ([]models.Committee, error) {
	committees, err := s.repo.ListCommittees(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return committees, nil
}

// GetCommittee returns one committee
func (s *CatalogService) GetCommittee(ctx context.Context, id string) (*models.Committee, error) {
	c, err := s.repo.GetCommittee(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "committee %s not found", id)
	}
	return c, nil
}

// Seed replaces the catalog. The catalog is frozen while any delegate holds
// a seat; force overrides that.
func (s *CatalogService) Seed(ctx context.Context, committees []models.Committee, force bool) (*SeedResult, error) {
	clean, err := ValidateCatalog(committees)
	if err != nil {
		return nil, err
	}

	assigned, err := s.repo.CountAssigned(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if assigned > 0 {
		if !force {
			return nil, ErrCatalogFrozen
		}
		s.log.Warn("replacing committee catalog while delegates are assigned", "assigned", assigned)
	}

	if err := s.repo.ReplaceCommittees(ctx, clean); err != nil {
		return nil, errors.Internal(err)
	}

	result := &SeedResult{Committees: len(clean)}
	for _, c := range clean {
		result.Seats += len(c.Countries)
	}
	s.log.Info("committee catalog seeded", "committees", result.Committees, "seats", result.Seats)
	return result, nil
}

// committeeLister is anything that can list the catalog
type committeeLister interface {
	ListCommittees(ctx context.Context) ([]models.Committee, error)
}

// committeeNames indexes committee display names by id
func committeeNames(ctx context.Context, repo committeeLister) (map[string]string, error) {
	committees, err := repo.ListCommittees(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	names := make(map[string]string, len(committees))
	for _, c := range committees {
		names[c.ID] = c.Name
	}
	return names, nil
}
