// Package metadata loads the read-only reference tables (accounts,
// categories, category groups, import presets) that drive normalization.
// The ETL pipeline never mutates these tables.
package metadata

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/saldoapp/saldo/internal/model"
	"github.com/saldoapp/saldo/internal/rawtable"
)

// Store holds the reference tables, indexed for the lookups the pipeline and
// the CLI need.
type Store struct {
	byNumber   map[string]model.Account
	byCatName  map[string]model.Category
	byCatID    map[int]model.Category
	byGroupID  map[int]model.CategoryGroup
	presets    map[int]*model.Preset
	accounts   []model.Account
	categories []model.Category
	groups     []model.CategoryGroup
}

// Load reads the four reference CSVs from dir. Inactive accounts,
// categories, and groups are filtered at load time. A missing categories,
// groups, or presets file is tolerated (empty table); a missing accounts
// file is an error since nothing can be imported without it.
func Load(dir string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		byNumber:  make(map[string]model.Account),
		byCatName: make(map[string]model.Category),
		byCatID:   make(map[int]model.Category),
		byGroupID: make(map[int]model.CategoryGroup),
		presets:   make(map[int]*model.Preset),
	}

	if err := s.loadAccounts(filepath.Join(dir, "accounts.csv")); err != nil {
		return nil, err
	}
	if err := s.loadCategories(filepath.Join(dir, "categories.csv")); err != nil {
		logger.Warn("failed to load categories", "error", err)
	}
	if err := s.loadGroups(filepath.Join(dir, "category_groups.csv")); err != nil {
		logger.Warn("failed to load category groups", "error", err)
	}
	if err := s.loadPresets(filepath.Join(dir, "presets.csv"), logger); err != nil {
		logger.Warn("failed to load presets", "error", err)
	}

	logger.Debug("loaded metadata",
		"accounts", len(s.accounts),
		"categories", len(s.categories),
		"groups", len(s.groups),
		"presets", len(s.presets))

	return s, nil
}

func (s *Store) loadAccounts(path string) error {
	t, err := rawtable.Load(path, rawtable.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		id, idErr := strconv.Atoi(t.Cell(i, "id"))
		if idErr != nil {
			return fmt.Errorf("accounts row %d: invalid id %q", i+1, t.Cell(i, "id"))
		}
		acct := model.Account{
			ID:       id,
			Name:     t.Cell(i, "name"),
			Number:   t.Cell(i, "number"),
			Type:     t.Cell(i, "account_type"),
			IsActive: parseBool(t.Cell(i, "is_active"), true),
		}
		if presetID, ok := parseOptionalInt(t.Cell(i, "default_import_preset_id")); ok {
			acct.DefaultImportPresetID = &presetID
		}
		if !acct.IsActive {
			continue
		}
		s.accounts = append(s.accounts, acct)
		s.byNumber[acct.Number] = acct
	}

	return nil
}

func (s *Store) loadCategories(path string) error {
	t, err := rawtable.Load(path, rawtable.DefaultOptions())
	if err != nil {
		return err
	}

	for i := 0; i < t.Len(); i++ {
		id, idErr := strconv.Atoi(t.Cell(i, "id"))
		if idErr != nil {
			continue
		}
		groupID, _ := parseOptionalInt(t.Cell(i, "group_id"))
		cat := model.Category{
			ID:          id,
			Name:        t.Cell(i, "name"),
			GroupID:     groupID,
			Description: t.Cell(i, "description"),
			Emoji:       t.Cell(i, "emoji"),
			Type:        t.Cell(i, "category_type"),
			IsActive:    parseBool(t.Cell(i, "is_active"), true),
		}
		if !cat.IsActive {
			continue
		}
		s.categories = append(s.categories, cat)
		s.byCatName[cat.Name] = cat
		s.byCatID[cat.ID] = cat
	}

	return nil
}

func (s *Store) loadGroups(path string) error {
	t, err := rawtable.Load(path, rawtable.DefaultOptions())
	if err != nil {
		return err
	}

	for i := 0; i < t.Len(); i++ {
		id, idErr := strconv.Atoi(t.Cell(i, "id"))
		if idErr != nil {
			continue
		}
		group := model.CategoryGroup{
			ID:       id,
			Name:     t.Cell(i, "name"),
			Color:    t.Cell(i, "color"),
			Emoji:    t.Cell(i, "emoji"),
			IsActive: parseBool(t.Cell(i, "is_active"), true),
		}
		if !group.IsActive {
			continue
		}
		s.groups = append(s.groups, group)
		s.byGroupID[group.ID] = group
	}

	return nil
}

func (s *Store) loadPresets(path string, logger *slog.Logger) error {
	t, err := rawtable.Load(path, rawtable.DefaultOptions())
	if err != nil {
		return err
	}

	for i := 0; i < t.Len(); i++ {
		id, idErr := strconv.Atoi(t.Cell(i, "id"))
		if idErr != nil {
			continue
		}

		// The amount rule is parsed once here, not per row.
		rule, ruleErr := model.ParseAmountRule(t.Cell(i, "amount_processing"))
		if ruleErr != nil {
			logger.Warn("skipping preset with invalid amount_processing",
				"preset_id", id, "error", ruleErr)
			continue
		}

		skipRows, _ := parseOptionalInt(t.Cell(i, "skip_rows"))
		preset := &model.Preset{
			ID:                id,
			Name:              t.Cell(i, "name"),
			DateColumn:        t.Cell(i, "date_column"),
			DateFormat:        t.Cell(i, "date_format"),
			DescriptionColumn: t.Cell(i, "description_column"),
			TypeColumn:        t.Cell(i, "transaction_type_column"),
			CategoryColumn:    t.Cell(i, "category_column"),
			Amount:            rule,
			Delimiter:         parseDelimiter(t.Cell(i, "delimiter")),
			HasHeader:         parseBool(t.Cell(i, "has_header"), true),
			SkipRows:          skipRows,
		}
		s.presets[preset.ID] = preset
	}

	return nil
}

// ResolvePreset returns the import preset configured for the account, or nil
// when the account has none or the reference does not resolve. Absence is a
// valid, expected case: the normalizer falls back to schema inference.
func (s *Store) ResolvePreset(account model.Account) *model.Preset {
	if account.DefaultImportPresetID == nil {
		return nil
	}
	return s.presets[*account.DefaultImportPresetID]
}

// AccountByNumber looks up an account by its external number.
func (s *Store) AccountByNumber(number string) (model.Account, bool) {
	acct, ok := s.byNumber[number]
	return acct, ok
}

// Accounts returns all active accounts in file order.
func (s *Store) Accounts() []model.Account {
	return s.accounts
}

// CategoryByName looks up a category by exact, case-sensitive name.
func (s *Store) CategoryByName(name string) (model.Category, bool) {
	cat, ok := s.byCatName[name]
	return cat, ok
}

// CategoryByID looks up a category by id.
func (s *Store) CategoryByID(id int) (model.Category, bool) {
	cat, ok := s.byCatID[id]
	return cat, ok
}

// GroupByID looks up a category group by id.
func (s *Store) GroupByID(id int) (model.CategoryGroup, bool) {
	group, ok := s.byGroupID[id]
	return group, ok
}

// Categories returns all active categories in file order.
func (s *Store) Categories() []model.Category {
	return s.categories
}

// Groups returns all active category groups in file order.
func (s *Store) Groups() []model.CategoryGroup {
	return s.groups
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return def
	}
	return b
}

func parseOptionalInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	// Tolerate spreadsheet-style floats like "3.0".
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s = s[:dot]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseDelimiter(s string) rune {
	switch s {
	case "", ",":
		return ','
	case "\\t", "tab":
		return '\t'
	default:
		return []rune(s)[0]
	}
}
