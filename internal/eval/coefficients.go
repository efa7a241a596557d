package eval

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Coefficients are the tunable constants of the blend formula. They are set
// at configuration time and read-only during search.
type Coefficients struct {
	NetComplexityWeight int `yaml:"net_complexity_weight"` // A
	DisagreementWeight  int `yaml:"disagreement_weight"`   // B
	ScaleBase           int `yaml:"scale_base"`            // C
	ScaleMaterial       int `yaml:"scale_material"`        // D
	OptimismComplexity  int `yaml:"optimism_complexity"`   // E
	OptimismScaleOffset int `yaml:"optimism_scale_offset"` // F
	Rule60Base          int `yaml:"rule60_base"`           // G
	Rule60Divisor       int `yaml:"rule60_divisor"`        // H
}

// DefaultCoefficients returns the coefficients networks were trained with.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		NetComplexityWeight: 477,
		DisagreementWeight:  401,
		ScaleBase:           668,
		ScaleMaterial:       106,
		OptimismComplexity:  281,
		OptimismScaleOffset: 740,
		Rule60Base:          205,
		Rule60Divisor:       120,
	}
}

// Tunable describes one coefficient exposed for external tuning.
type Tunable struct {
	Name    string
	Default int
	Min     int
	Max     int
	field   func(c *Coefficients) *int
}

// Tunables lists every coefficient with its range. The range is
// [0, 2*default], the divisor never goes below 1.
var Tunables = func() []Tunable {
	d := DefaultCoefficients()
	t := []Tunable{
		{Name: "NetComplexityWeight", Default: d.NetComplexityWeight, field: func(c *Coefficients) *int { return &c.NetComplexityWeight }},
		{Name: "DisagreementWeight", Default: d.DisagreementWeight, field: func(c *Coefficients) *int { return &c.DisagreementWeight }},
		{Name: "ScaleBase", Default: d.ScaleBase, field: func(c *Coefficients) *int { return &c.ScaleBase }},
		{Name: "ScaleMaterial", Default: d.ScaleMaterial, field: func(c *Coefficients) *int { return &c.ScaleMaterial }},
		{Name: "OptimismComplexity", Default: d.OptimismComplexity, field: func(c *Coefficients) *int { return &c.OptimismComplexity }},
		{Name: "OptimismScaleOffset", Default: d.OptimismScaleOffset, field: func(c *Coefficients) *int { return &c.OptimismScaleOffset }},
		{Name: "Rule60Base", Default: d.Rule60Base, field: func(c *Coefficients) *int { return &c.Rule60Base }},
		{Name: "Rule60Divisor", Default: d.Rule60Divisor, field: func(c *Coefficients) *int { return &c.Rule60Divisor }},
	}
	for i := range t {
		t[i].Max = 2 * t[i].Default
	}
	t[len(t)-1].Min = 1
	return t
}()

// Get returns the current value of the named coefficient.
func (c *Coefficients) Get(name string) (int, error) {
	for _, t := range Tunables {
		if t.Name == name {
			return *t.field(c), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownTunable, name)
}

// Set changes the named coefficient, rejecting values outside its range.
func (c *Coefficients) Set(name string, value int) error {
	for _, t := range Tunables {
		if t.Name != name {
			continue
		}
		if value < t.Min || value > t.Max {
			return fmt.Errorf("%w: %s=%d not in [%d, %d]", ErrOutOfRange, name, value, t.Min, t.Max)
		}
		*t.field(c) = value
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownTunable, name)
}

// Validate checks every coefficient against its range.
func (c *Coefficients) Validate() error {
	for _, t := range Tunables {
		if v := *t.field(c); v < t.Min || v > t.Max {
			return fmt.Errorf("%w: %s=%d not in [%d, %d]", ErrOutOfRange, t.Name, v, t.Min, t.Max)
		}
	}
	return nil
}

// LoadCoefficients reads a YAML tuning file. Missing keys keep their defaults.
func LoadCoefficients(r io.Reader) (Coefficients, error) {
	c := DefaultCoefficients()
	if err := yaml.NewDecoder(r).Decode(&c); err != nil && err != io.EOF {
		return c, fmt.Errorf("decode coefficients: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// WriteYAML writes the coefficients as a YAML tuning file.
func (c *Coefficients) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode coefficients: %w", err)
	}
	return enc.Close()
}
