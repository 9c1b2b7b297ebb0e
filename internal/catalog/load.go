package catalog

import (
	_ "embed"

	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

//go:embed internships.json
var defaultCatalog []byte

var validate = validator.New()

// entry mirrors the on-disk shape of an opportunity before validation.
type entry struct {
	ID             float64   `mapstructure:"id" validate:"required"`
	Title          string    `mapstructure:"title" validate:"required"`
	Company        string    `mapstructure:"company" validate:"required"`
	Location       string    `mapstructure:"location" validate:"required"`
	SkillsRequired []any     `mapstructure:"skills_required" validate:"required"`
	ScoreRange     []float64 `mapstructure:"score_range" validate:"required,len=2"`
	Category       string    `mapstructure:"category" validate:"required"`
	Description    string    `mapstructure:"description"`
}

// Load reads the catalog from path, or the built-in catalog when path is empty.
// Load never fails: an unreadable or malformed file yields an empty store and an
// error log entry, so recommendations degrade to empty instead of aborting startup.
func Load(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	path = strings.TrimSpace(path)
	data := defaultCatalog
	source := "builtin"

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Error("loading catalog", zap.String("path", path), zap.Error(err))
			return NewStore(nil)
		}
		data = raw
		source = path
	}

	items, err := Parse(data, logger)
	if err != nil {
		logger.Error("parsing catalog", zap.String("source", source), zap.Error(err))
		return NewStore(nil)
	}

	store := NewStore(items)
	if dropped := len(items) - store.Len(); dropped > 0 {
		logger.Warn("duplicate catalog ids dropped", zap.Int("count", dropped))
	}

	logger.Info("catalog loaded", zap.String("source", source), zap.Int("opportunities", store.Len()))
	return store
}

// Parse decodes a JSON array of opportunities. Entries missing required fields
// are skipped and logged; only a document that is not a JSON array is an error.
func Parse(data []byte, logger *zap.Logger) ([]Opportunity, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	items := make([]Opportunity, 0, len(raw))
	for i, fields := range raw {
		item, err := decodeEntry(fields)
		if err != nil {
			logger.Warn("skipping malformed catalog entry",
				zap.Int("position", i),
				zap.Any("id", fields["id"]),
				zap.Error(err),
			)
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func decodeEntry(fields map[string]any) (Opportunity, error) {
	if fields == nil {
		return Opportunity{}, errors.New("entry is null")
	}

	var e entry
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &e,
		TagName: "mapstructure",
	})
	if err != nil {
		return Opportunity{}, err
	}

	if err := decoder.Decode(fields); err != nil {
		return Opportunity{}, fmt.Errorf("decode entry: %w", err)
	}

	if err := validate.Struct(e); err != nil {
		return Opportunity{}, fmt.Errorf("validate entry: %w", err)
	}

	// JSON numbers arrive as float64; an id must be a whole number.
	if e.ID != math.Trunc(e.ID) || math.Abs(e.ID) > math.MaxInt32 {
		return Opportunity{}, fmt.Errorf("id %v is not a valid integer id", e.ID)
	}

	if e.ScoreRange[0] > e.ScoreRange[1] {
		return Opportunity{}, fmt.Errorf("score range low %v is above high %v", e.ScoreRange[0], e.ScoreRange[1])
	}

	skills := make([]Skill, 0, len(e.SkillsRequired))
	for _, v := range e.SkillsRequired {
		skills = append(skills, RawSkill(v))
	}

	return Opportunity{
		ID:             int(e.ID),
		Title:          e.Title,
		Company:        e.Company,
		Location:       e.Location,
		SkillsRequired: skills,
		ScoreRange:     ScoreRange{Low: e.ScoreRange[0], High: e.ScoreRange[1]},
		Category:       e.Category,
		Description:    e.Description,
	}, nil
}
