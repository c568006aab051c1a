// 包 config：运行参数，先读 YAML 计划文件，再以环境变量覆盖
package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"sector-grid/internal/geo"
	"sector-grid/internal/grid"
	"sector-grid/internal/pipeline"
	"sector-grid/internal/projection"
)

// 投影引擎
const (
	EngineLocal   = "local"
	EnginePostGIS = "postgis"
)

// Config：一次构建所需的全部参数
type Config struct {
	Border struct {
		Name string `yaml:"name"`
		File string `yaml:"file"`
	} `yaml:"border"`
	Grid struct {
		CellSizeM float64 `yaml:"cell_size_m"`
		CRS       string  `yaml:"crs"`
		Policy    string  `yaml:"policy"`
	} `yaml:"grid"`
	Sectors struct {
		Azimuths   []float64 `yaml:"azimuths"`
		SpreadDeg  float64   `yaml:"spread_deg"`
		RadiusM    float64   `yaml:"radius_m"`
		Resolution int       `yaml:"resolution"`
	} `yaml:"sectors"`
	Workers       int    `yaml:"workers"`
	Engine        string `yaml:"engine"`
	ExportGeoJSON string `yaml:"export_geojson"`
}

// Default：未配置项的取值；裁剪策略没有默认值
func Default() *Config {
	c := &Config{}
	c.Grid.CellSizeM = 5000
	c.Grid.CRS = projection.CRSAuto
	c.Sectors.Azimuths = []float64{0, 120, 240}
	c.Sectors.SpreadDeg = 60
	c.Sectors.RadiusM = 5000
	c.Sectors.Resolution = 16
	c.Workers = runtime.NumCPU()
	c.Engine = EngineLocal
	return c
}

// Load：Default → PLAN_FILE → 环境变量 → Validate
func Load() (*Config, error) {
	c, err := load()
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadSectors：只构造扇区时使用，不要求网格参数
func LoadSectors() (*Config, error) {
	c, err := load()
	if err != nil {
		return nil, err
	}
	if err := c.ValidateSectors(); err != nil {
		return nil, err
	}
	return c, nil
}

func load() (*Config, error) {
	c := Default()
	if p := os.Getenv("PLAN_FILE"); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "read plan %s", p)
		}
		if err := c.Merge(b); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

// Merge：YAML 中出现的字段覆盖当前值
func (c *Config) Merge(b []byte) error {
	if err := yaml.Unmarshal(b, c); err != nil {
		return errors.Wrap(err, "parse plan")
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(k string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			*dst = v
		}
	}
	str("BORDER_NAME", &c.Border.Name)
	str("BORDER_FILE", &c.Border.File)
	str("GRID_CRS", &c.Grid.CRS)
	str("GRID_CLIP_POLICY", &c.Grid.Policy)
	str("PROJECTION_ENGINE", &c.Engine)
	str("EXPORT_GEOJSON", &c.ExportGeoJSON)

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"GRID_CELL_SIZE_M", &c.Grid.CellSizeM},
		{"SECTOR_SPREAD_DEG", &c.Sectors.SpreadDeg},
		{"SECTOR_RADIUS_M", &c.Sectors.RadiusM},
	} {
		if v := os.Getenv(f.key); v != "" {
			x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return errors.Wrapf(geo.ErrInvalidParameters, "%s=%q", f.key, v)
			}
			*f.dst = x
		}
	}
	for _, f := range []struct {
		key string
		dst *int
	}{
		{"SECTOR_RESOLUTION", &c.Sectors.Resolution},
		{"INTERSECT_WORKERS", &c.Workers},
	} {
		if v := os.Getenv(f.key); v != "" {
			x, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.Wrapf(geo.ErrInvalidParameters, "%s=%q", f.key, v)
			}
			*f.dst = x
		}
	}
	if v := os.Getenv("SECTOR_AZIMUTHS"); v != "" {
		az, err := ParseAzimuths(v)
		if err != nil {
			return err
		}
		c.Sectors.Azimuths = az
	}
	return nil
}

// ParseAzimuths：逗号分隔的方位角列表
func ParseAzimuths(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, errors.Wrapf(geo.ErrInvalidParameters, "azimuth %q", part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.Wrap(geo.ErrInvalidParameters, "empty azimuth list")
	}
	return out, nil
}

// Validate：策略必须显式给出
func (c *Config) Validate() error {
	if _, err := grid.ParsePolicy(c.Grid.Policy); err != nil {
		return errors.Wrap(err, "GRID_CLIP_POLICY")
	}
	if !(c.Grid.CellSizeM > 0) {
		return errors.Wrapf(geo.ErrInvalidParameters, "cell size %v must be positive", c.Grid.CellSizeM)
	}
	switch c.Engine {
	case EngineLocal, EnginePostGIS:
	default:
		return errors.Wrapf(geo.ErrInvalidParameters, "projection engine %q", c.Engine)
	}
	return c.ValidateSectors()
}

// ValidateSectors：扇区参数按构造器的规则校验
func (c *Config) ValidateSectors() error {
	if err := c.Plan().Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}

// Plan：扇区参数
func (c *Config) Plan() pipeline.SectorPlan {
	return pipeline.SectorPlan{
		Azimuths:   c.Sectors.Azimuths,
		Spread:     c.Sectors.SpreadDeg,
		Radius:     c.Sectors.RadiusM,
		Resolution: c.Sectors.Resolution,
	}
}

// Policy：已校验的裁剪策略
func (c *Config) Policy() grid.Policy {
	p, _ := grid.ParsePolicy(c.Grid.Policy)
	return p
}
