package atom

import (
	"embed"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/goccy/go-yaml"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// dailySlotMax is the last slot id belonging to the daily pool; higher slots
// belong to the dialogue/action pool.
const dailySlotMax = 180

type slotsFile struct {
	Groups []struct {
		Category     string   `yaml:"category"`
		Descriptions []string `yaml:"descriptions"`
	} `yaml:"groups"`
}

type atomsFile struct {
	Atoms []struct {
		SlotID string `yaml:"slot_id"`
		Native string `yaml:"native"`
		Intent string `yaml:"intent"`
		Fuzzy  string `yaml:"fuzzy"`
	} `yaml:"atoms"`
}

type soundsFile struct {
	Cards []SoundCard `yaml:"cards"`
}

type themesFile struct {
	Themes []BoundaryTheme `yaml:"themes"`
}

var catalog = struct {
	once   sync.Once
	slots  []GenerationSlot
	atoms  []VerbalAtom
	cards  []SoundCard
	themes []BoundaryTheme
}{}

func loadCatalog() {
	var sf slotsFile
	mustLoad("catalog/slots.yaml", &sf)
	id := 0
	for _, g := range sf.Groups {
		for _, desc := range g.Descriptions {
			id++
			catalog.slots = append(catalog.slots, GenerationSlot{
				ID:          strconv.Itoa(id),
				Category:    g.Category,
				Description: desc,
			})
		}
	}

	slotByID := make(map[string]GenerationSlot, len(catalog.slots))
	for _, s := range catalog.slots {
		slotByID[s.ID] = s
	}

	var af atomsFile
	mustLoad("catalog/atoms.yaml", &af)
	for _, e := range af.Atoms {
		slot, ok := slotByID[e.SlotID]
		if !ok {
			panic(fmt.Sprintf("atom: catalog entry for unknown slot %q", e.SlotID))
		}
		catalog.atoms = append(catalog.atoms, VerbalAtom{
			ID:         "atom-" + e.SlotID,
			SamplePool: PoolForSlot(e.SlotID),
			Role:       slot.Category,
			Intent:     e.Intent,
			IntentEn:   slot.Description,
			Native:     e.Native,
			Fuzzy:      e.Fuzzy,
			Fallback:   []string{},
			Keywords:   []string{},
			Notes:      "压力位: " + e.SlotID,
			SlotID:     e.SlotID,
		})
	}

	var cf soundsFile
	mustLoad("catalog/sounds.yaml", &cf)
	catalog.cards = cf.Cards

	var tf themesFile
	mustLoad("catalog/themes.yaml", &tf)
	catalog.themes = tf.Themes
}

func mustLoad(name string, v any) {
	data, err := catalogFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("atom: missing embedded catalog %s: %v", name, err))
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		panic(fmt.Sprintf("atom: malformed embedded catalog %s: %v", name, err))
	}
}

// Slots returns the full ordered table of 300 generation slots. The
// accessors all return copies; the embedded catalog itself never
// changes.
func Slots() []GenerationSlot {
	catalog.once.Do(loadCatalog)
	return slices.Clone(catalog.slots)
}

// MotherAtoms returns the authored base sentences in slot order. Slots with
// no authored content have no atom here; they stay addressable through their
// generation slot only.
func MotherAtoms() []VerbalAtom {
	catalog.once.Do(loadCatalog)
	return slices.Clone(catalog.atoms)
}

// SoundCards returns the pronunciation drill catalog.
func SoundCards() []SoundCard {
	catalog.once.Do(loadCatalog)
	return slices.Clone(catalog.cards)
}

// BoundaryThemes returns the themed secret-dialogue quote catalog.
func BoundaryThemes() []BoundaryTheme {
	catalog.once.Do(loadCatalog)
	return slices.Clone(catalog.themes)
}

// BaseSequence returns the pure base alternation of the authored pools.
func BaseSequence() []VerbalAtom {
	return Resequence(MotherAtoms())
}
