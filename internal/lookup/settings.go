package lookup

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

// settingsFile mirrors the parts of the generator's settings document that the
// engine needs. JSON documents parse as YAML.
type settingsFile struct {
	ShopCategories map[string]struct {
		ChainsOfStores map[string]yaml.Node `yaml:"chains_of_stores"`
	} `yaml:"shop_categories"`
	BINListPath string `yaml:"bin_list_path"`
}

// FileProvider reads the settings document and the BIN list it points to.
type FileProvider struct {
	SettingsPath string
	// BINListPath overrides bin_list_path from the settings document.
	BINListPath  string
	BINDelimiter string
	logger       *logrus.Logger
}

// NewFileProvider creates a provider backed by local files.
func NewFileProvider(settingsPath, binListPath string, logger *logrus.Logger) *FileProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &FileProvider{
		SettingsPath: settingsPath,
		BINListPath:  binListPath,
		BINDelimiter: constants.DefaultBINDelimiter,
		logger:       logger,
	}
}

// Load implements Provider.
func (p *FileProvider) Load(ctx context.Context) (*Tables, error) {
	data, err := os.ReadFile(p.SettingsPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeLookupMissing,
			fmt.Sprintf("failed to read settings %s", p.SettingsPath))
	}

	shops, binPath, err := ParseSettings(data)
	if err != nil {
		return nil, err
	}

	if p.BINListPath != "" {
		binPath = p.BINListPath
	} else if binPath != "" && !filepath.IsAbs(binPath) {
		binPath = filepath.Join(filepath.Dir(p.SettingsPath), binPath)
	}
	if binPath == "" {
		return nil, errors.WrapError(errors.ErrLookupTableMissing, errors.ErrorTypeConfiguration, errors.CodeLookupMissing,
			"settings do not name a BIN list")
	}

	f, err := os.Open(binPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeLookupMissing,
			fmt.Sprintf("failed to open BIN list %s", binPath))
	}
	defer f.Close()

	bins, err := ParseBINList(f, p.BINDelimiter)
	if err != nil {
		return nil, err
	}

	tables := NewTables(shops, bins)
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"settings":   p.SettingsPath,
		"bin_list":   binPath,
		"shops":      len(tables.ShopCategories),
		"bin_brands": len(tables.BINBrands),
	}).Info("Loaded lookup tables")
	return tables, nil
}

// ParseSettings extracts the shop chain → category mapping and the BIN list
// path from a settings document.
func ParseSettings(data []byte) (map[string]string, string, error) {
	var doc settingsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "", errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeLookupInvalid, "failed to parse settings")
	}
	if len(doc.ShopCategories) == 0 {
		return nil, "", errors.WrapError(errors.ErrLookupTableMissing, errors.ErrorTypeConfiguration, errors.CodeLookupMissing,
			"settings have no shop_categories")
	}

	shops := make(map[string]string)
	for category, entry := range doc.ShopCategories {
		for chain := range entry.ChainsOfStores {
			if prev, ok := shops[chain]; ok && prev != category {
				return nil, "", errors.NewConfigurationError(errors.CodeLookupInvalid,
					fmt.Sprintf("shop %q listed under both %q and %q", chain, prev, category))
			}
			shops[chain] = category
		}
	}
	return shops, doc.BINListPath, nil
}

// ParseBINList reads a delimited BIN list with at least "bin" and "brand" columns.
func ParseBINList(r io.Reader, delimiter string) (map[string]string, error) {
	if delimiter == "" {
		delimiter = constants.DefaultBINDelimiter
	}

	reader := csv.NewReader(r)
	reader.Comma = []rune(delimiter)[0]
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeLookupInvalid, "failed to read BIN list header")
	}

	binIdx, brandIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "bin":
			binIdx = i
		case "brand":
			brandIdx = i
		}
	}
	if binIdx < 0 || brandIdx < 0 {
		return nil, errors.NewConfigurationError(errors.CodeLookupInvalid, "BIN list must have 'bin' and 'brand' columns")
	}

	brands := make(map[string]string)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeLookupInvalid, "failed to read BIN list")
		}
		if binIdx >= len(row) || brandIdx >= len(row) {
			continue
		}
		bin := strings.TrimSpace(row[binIdx])
		brand := strings.TrimSpace(row[brandIdx])
		if bin == "" || brand == "" {
			continue
		}
		brands[bin] = brand
	}

	if len(brands) == 0 {
		return nil, errors.WrapError(errors.ErrLookupTableMissing, errors.ErrorTypeConfiguration, errors.CodeLookupMissing, "BIN list is empty")
	}
	return brands, nil
}
