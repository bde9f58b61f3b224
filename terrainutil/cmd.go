/*
Copyright © 2026 the terrain authors.
This file is part of terrain.

terrain is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

terrain is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with terrain.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package terrainutil holds the configuration and cobra commands for
// the terrain command-line tool.
package terrainutil

import (
	"fmt"
	"math"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/terrain"
)

// Version is the version of this program. It should be set by the
// linker at build time.
var Version = "development"

// Config holds the tool's configuration, read from a TOML file.
type Config struct {
	// TileDir is the directory holding the elevation tiles.
	TileDir string `toml:"tile_dir"`

	// MaxTiles is the maximum number of tiles held in memory.
	MaxTiles int `toml:"max_tiles"`

	// Geoid optionally names a grid file with geoid undulations.
	Geoid string `toml:"geoid"`

	// Stepper tunables; zero values keep the defaults.
	LocalRange       float64 `toml:"local_range"`
	SlopeFactor      float64 `toml:"slope_factor"`
	ResolutionFactor float64 `toml:"resolution_factor"`
}

var (
	cfgFile string
	verbose bool

	log = logrus.StandardLogger()
)

func loadConfig() (*Config, error) {
	cfg := &Config{MaxTiles: 16}
	if _, err := toml.DecodeFile(cfgFile, cfg); err != nil {
		return nil, fmt.Errorf("terrainutil: reading config %s: %v", cfgFile, err)
	}
	if cfg.TileDir == "" {
		return nil, fmt.Errorf("terrainutil: config %s does not set tile_dir", cfgFile)
	}
	return cfg, nil
}

// newStack builds the tile stack described by the configuration.
func newStack(cfg *Config) (*terrain.Stack, error) {
	s, err := terrain.NewLockedStack(cfg.TileDir, cfg.MaxTiles)
	if err != nil {
		return nil, err
	}
	s.Log = log
	return s, nil
}

// newStepper builds a stepper over the configured stack, with the
// geoid attached when one is configured.
func newStepper(cfg *Config, s *terrain.Stack) (*terrain.Stepper, error) {
	st := terrain.NewStepper()
	if cfg.LocalRange != 0 {
		st.LocalRange = cfg.LocalRange
	}
	if cfg.SlopeFactor != 0 {
		st.SlopeFactor = cfg.SlopeFactor
	}
	if cfg.ResolutionFactor != 0 {
		st.ResolutionFactor = cfg.ResolutionFactor
	}
	if err := st.AddStackLayer(s); err != nil {
		return nil, err
	}
	if cfg.Geoid != "" {
		g, err := terrain.LoadTile(cfg.Geoid)
		if err != nil {
			return nil, err
		}
		st.SetGeoid(g)
	}
	return st, nil
}

func parseFloats(args []string) ([]float64, error) {
	o := make([]float64, len(args))
	for i, a := range args {
		var err error
		if o[i], err = strconv.ParseFloat(a, 64); err != nil {
			return nil, fmt.Errorf("terrainutil: parsing argument %q: %v", a, err)
		}
	}
	return o, nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "terrain",
	Short: "terrain queries tiled elevation data.",
	Long: `terrain answers elevation queries against a directory of gridded
elevation tiles, keeping a bounded number of tiles in memory.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	SilenceUsage: true,
}

var elevationCmd = &cobra.Command{
	Use:   "elevation lat lon",
	Short: "Report the ground elevation at a point.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseFloats(args)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Clear(true)
		z, inside, err := s.ElevationIn(v[0], v[1])
		if err != nil {
			return err
		}
		if !inside {
			return fmt.Errorf("no elevation data at (%g, %g)", v[0], v[1])
		}
		fmt.Printf("%g\n", z)
		return nil
	},
}

var preloadCmd = &cobra.Command{
	Use:   "preload minLat minLon maxLat maxLon",
	Short: "Load every tile intersecting a region.",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseFloats(args)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Clear(true)
		b := geom.NewBoundsPoint(geom.Point{X: v[1], Y: v[0]})
		b.Extend(geom.NewBoundsPoint(geom.Point{X: v[3], Y: v[2]}))
		n, err := s.LoadRegion(b)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"tiles": n, "held": s.Len()}).Info("preloaded region")
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile lat1 lon1 lat2 lon2",
	Short: "March a ray between two points and report medium crossings.",
	Long: `profile casts a ray from 100 m above the ground at the first point
toward the second point and reports every crossing between media
(ground entries and exits) along the way.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseFloats(args)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Clear(true)
		st, err := newStepper(cfg, s)
		if err != nil {
			return err
		}

		pos, _, err := st.Position(v[0], v[1], 100)
		if err != nil {
			return err
		}
		end, _, err := st.PositionIn(v[2], v[3], 100)
		if err != nil {
			return err
		}
		dir := [3]float64{end[0] - pos[0], end[1] - pos[1], end[2] - pos[2]}
		total := normalize(&dir)

		prev, _, err := st.StepIn(&pos, nil)
		if err != nil {
			return err
		}
		traveled := 0.0
		for traveled < total {
			smp, ds, err := st.StepIn(&pos, &dir)
			if err != nil {
				return err
			}
			traveled += ds
			if smp.Layer != prev.Layer || smp.Below() != prev.Below() {
				fmt.Printf("crossing at %.1f m: lat %.6f lon %.6f alt %.2f (layer %d)\n",
					traveled, smp.Geographic[0], smp.Geographic[1], smp.Geographic[2], smp.Layer)
			}
			prev = smp
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("terrain v%s\n", Version)
	},
}

func normalize(v *[3]float64) float64 {
	n := 0.0
	for _, x := range v {
		n += x * x
	}
	n = math.Sqrt(n)
	if n > 0 {
		v[0] /= n
		v[1] /= n
		v[2] /= n
	}
	return n
}

func init() {
	Root.PersistentFlags().StringVar(&cfgFile, "config", "terrain.toml", "configuration file location")
	Root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	Root.AddCommand(elevationCmd, preloadCmd, profileCmd, versionCmd)
}
