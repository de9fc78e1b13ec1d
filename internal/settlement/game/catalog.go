package game

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/prize"
)

// Catalog guarda os jogos configurados, indexados por id
type Catalog struct {
	games map[string]Game
}

// NewCatalog valida os jogos e monta o índice
func NewCatalog(games ...Game) (*Catalog, error) {
	c := &Catalog{games: make(map[string]Game, len(games))}
	for _, g := range games {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.games[g.ID]; dup {
			return nil, fmt.Errorf("duplicated game id %q", g.ID)
		}
		c.games[g.ID] = g
	}
	return c, nil
}

// Get busca um jogo pelo id
func (c *Catalog) Get(id string) (Game, error) {
	g, ok := c.games[id]
	if !ok {
		return Game{}, fmt.Errorf("%w: %s", domain.ErrUnknownGame, id)
	}
	return g, nil
}

// IDs lista os jogos em ordem alfabética
func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.games))
	for id := range c.games {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// formato do arquivo YAML
type catalogFile struct {
	Games []gameEntry `yaml:"games"`
}

type gameEntry struct {
	ID                string      `yaml:"id"`
	Name              string      `yaml:"name"`
	Type              string      `yaml:"type"`
	PayoutRatio       string      `yaml:"payout_ratio"`
	MatchCount        int         `yaml:"match_count"`
	NumberDigits      int         `yaml:"number_digits"`
	HourOnlyTier      bool        `yaml:"hour_only_tier"`
	MaxLiabilityCents int64       `yaml:"max_liability_cents"`
	WarnRatio         string      `yaml:"warn_ratio"`
	Tiers             []tierEntry `yaml:"tiers"`
}

type tierEntry struct {
	Name       string `yaml:"name"`
	Threshold  int    `yaml:"threshold"`
	Percentage string `yaml:"percentage"`
}

// LoadCatalog lê o catálogo de jogos de um arquivo YAML
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read games file: %w", err)
	}
	return ParseCatalog(b)
}

// ParseCatalog interpreta o conteúdo YAML do catálogo
func ParseCatalog(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse games file: %w", err)
	}

	games := make([]Game, 0, len(f.Games))
	for _, e := range f.Games {
		g, err := e.toGame()
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return NewCatalog(games...)
}

func (e gameEntry) toGame() (Game, error) {
	ratio, err := decimal.NewFromString(e.PayoutRatio)
	if err != nil {
		return Game{}, fmt.Errorf("game %s payout_ratio: %w", e.ID, err)
	}
	warn := DefaultWarnRatio
	if e.WarnRatio != "" {
		if warn, err = decimal.NewFromString(e.WarnRatio); err != nil {
			return Game{}, fmt.Errorf("game %s warn_ratio: %w", e.ID, err)
		}
	}

	tiers := make([]prize.Tier, 0, len(e.Tiers))
	for _, t := range e.Tiers {
		pct, err := decimal.NewFromString(t.Percentage)
		if err != nil {
			return Game{}, fmt.Errorf("game %s tier %q percentage: %w", e.ID, t.Name, err)
		}
		tiers = append(tiers, prize.Tier{Name: t.Name, Threshold: t.Threshold, Percentage: pct})
	}
	table, err := prize.NewTierTable(tiers...)
	if err != nil {
		return Game{}, fmt.Errorf("game %s: %w", e.ID, err)
	}

	return Game{
		ID:                e.ID,
		Name:              e.Name,
		Type:              domain.GameType(e.Type),
		PayoutRatio:       ratio,
		Tiers:             table,
		MatchCount:        e.MatchCount,
		NumberDigits:      e.NumberDigits,
		HourOnlyTier:      e.HourOnlyTier,
		MaxLiabilityCents: e.MaxLiabilityCents,
		WarnRatio:         warn,
	}, nil
}
