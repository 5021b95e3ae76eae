package refdata

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout of a reference data seed.
type SeedFile struct {
	Domains  []DomainCodes `yaml:"reference_codes"`
	Agencies []Agency      `yaml:"agency_locations"`
}

type DomainCodes struct {
	Domain string `yaml:"domain"`
	Codes  []Code `yaml:"codes"`
}

type Code struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
	Inactive    bool   `yaml:"inactive"`
}

type Agency struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Inactive    bool   `yaml:"inactive"`
}

// ReferenceCode is one flattened, validated entry of the seed.
type ReferenceCode struct {
	Domain      string
	Code        string
	Description string
	Active      bool
	ListSeq     int
}

// ParseFile reads and parses a seed file.
func ParseFile(filePath string) (*SeedFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed and checks codes are present and unique per domain.
func Parse(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed: %w", err)
	}

	for _, d := range seed.Domains {
		if strings.TrimSpace(d.Domain) == "" {
			return nil, fmt.Errorf("reference code domain without name")
		}
		seen := make(map[string]bool, len(d.Codes))
		for _, c := range d.Codes {
			if strings.TrimSpace(c.Code) == "" {
				return nil, fmt.Errorf("empty code in domain %s", d.Domain)
			}
			if seen[c.Code] {
				return nil, fmt.Errorf("duplicate code %s in domain %s", c.Code, d.Domain)
			}
			seen[c.Code] = true
		}
	}

	for _, a := range seed.Agencies {
		if strings.TrimSpace(a.ID) == "" {
			return nil, fmt.Errorf("agency location without id")
		}
	}

	return &seed, nil
}

// Flatten returns every code of the seed with its position in its domain.
func (s *SeedFile) Flatten() []ReferenceCode {
	var result []ReferenceCode
	for _, d := range s.Domains {
		for i, c := range d.Codes {
			result = append(result, ReferenceCode{
				Domain:      d.Domain,
				Code:        c.Code,
				Description: c.Description,
				Active:      !c.Inactive,
				ListSeq:     i + 1,
			})
		}
	}
	return result
}
