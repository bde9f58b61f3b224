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

package terrain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// crossingTol is the tolerance, in meters of step length, to which a
// crossing between media is localized by bisection.
const crossingTol = 1e-8

// jacobianStep is the half-width, in meters, of the central finite
// differences used to estimate a layer's local transform Jacobian.
const jacobianStep = 10.0

// Geographic indexes the components of a layer's geographic
// coordinate vector: geodetic latitude, longitude and altitude, plus
// the planar coordinates of the layer's projection (equal to
// longitude and latitude for unprojected layers).
const (
	geoLat = iota
	geoLon
	geoAlt
	geoX
	geoY
	geoComponents
)

type layerKind int

const (
	layerFlat layerKind = iota
	layerStack
	layerClient
	layerTile
)

// layer is one elevation provider in a Stepper, together with its
// cached local linearization of the ECEF-to-geographic conversion.
type layer struct {
	kind   layerKind
	ground float64 // layerFlat
	stack  *Stack
	client *Client
	tile   *Tile

	// Local transform cache: an affine approximation of the exact
	// conversion, valid within the stepper's LocalRange of refECEF.
	refECEF [3]float64
	refGeo  [geoComponents]float64
	jac     *mat.Dense // geoComponents × 3

	// lastExact is the position of the most recent exact conversion,
	// used to decide whether refreshing the cache is worthwhile.
	lastExact [3]float64
	haveExact bool
}

func newLayer(kind layerKind) *layer {
	return &layer{
		kind:    kind,
		refECEF: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
	}
}

// Sample is the result of querying a Stepper at one position.
type Sample struct {
	// Position is the ECEF query position in meters.
	Position [3]float64
	// Geographic holds the geodetic and planar coordinates of the
	// position for the matched layer (see the geo* constants).
	Geographic [geoComponents]float64
	// Ground is the matched layer's ground elevation at the position.
	Ground float64
	// Layer is the index of the matched layer (0 = most recently
	// added), or -1 when no layer's domain contains the position.
	Layer int
}

// Below reports whether the sampled position is below the matched
// layer's ground. It is false when no layer matched.
func (s Sample) Below() bool {
	return s.Layer >= 0 && s.Geographic[geoAlt] < s.Ground
}

// Stepper marches a point through an ordered collection of elevation
// layers, answering "what is the ground here" and localizing
// crossings between media. Layers are queried most-recently-added
// first.
//
// A Stepper is not safe for concurrent use: its last-sample cache and
// the per-layer local transforms are mutated in place. Use one
// Stepper per goroutine; Steppers may share Stacks through distinct
// Clients.
type Stepper struct {
	// LocalRange is the radius, in meters, within which a layer's
	// cached affine transform replaces the exact ECEF-to-geographic
	// conversion. Zero or negative disables the cache.
	LocalRange float64

	// SlopeFactor scales the height above ground into a step length.
	SlopeFactor float64

	// ResolutionFactor is the minimum step length in meters.
	ResolutionFactor float64

	layers []*layer
	geoid  *Tile

	last     Sample
	haveLast bool
}

// NewStepper returns a stepper with no layers and default tunables.
func NewStepper() *Stepper {
	return &Stepper{
		LocalRange:       1000,
		SlopeFactor:      0.5,
		ResolutionFactor: 1,
	}
}

// invalidate drops the last-sample cache.
func (st *Stepper) invalidate() { st.haveLast = false }

// addLayer pushes l to the front of the layer list, so the most
// recently added layer is queried first.
func (st *Stepper) addLayer(l *layer) {
	st.layers = append([]*layer{l}, st.layers...)
	st.invalidate()
}

// AddFlatLayer adds a layer whose ground is the constant groundLevel
// everywhere.
func (st *Stepper) AddFlatLayer(groundLevel float64) {
	l := newLayer(layerFlat)
	l.ground = groundLevel
	st.addLayer(l)
}

// AddStackLayer adds a layer backed by s. The stepper queries s
// directly; for a stack shared between goroutines use AddClientLayer
// instead.
func (st *Stepper) AddStackLayer(s *Stack) error {
	if s == nil {
		return report(fmt.Errorf("in terrain.Stepper.AddStackLayer: %w: nil stack", ErrBadAddress))
	}
	l := newLayer(layerStack)
	l.stack = s
	st.addLayer(l)
	return nil
}

// AddClientLayer adds a layer backed by c.
func (st *Stepper) AddClientLayer(c *Client) error {
	if c == nil {
		return report(fmt.Errorf("in terrain.Stepper.AddClientLayer: %w: nil client", ErrBadAddress))
	}
	l := newLayer(layerClient)
	l.client = c
	st.addLayer(l)
	return nil
}

// AddTileLayer adds a layer backed by a standalone tile, such as a
// local projected map.
func (st *Stepper) AddTileLayer(t *Tile) error {
	if t == nil {
		return report(fmt.Errorf("in terrain.Stepper.AddTileLayer: %w: nil tile", ErrBadAddress))
	}
	l := newLayer(layerTile)
	l.tile = t
	st.addLayer(l)
	return nil
}

// SetGeoid attaches a geoid undulation map, indexed by longitude in
// [0, 360) and latitude. Exactly computed altitudes are corrected by
// subtracting the undulation; positions are built by adding it back.
// Passing nil detaches the geoid.
func (st *Stepper) SetGeoid(t *Tile) {
	st.geoid = t
	// Cached transforms embed the previous correction.
	for _, l := range st.layers {
		l.jac = nil
		l.refECEF = [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
		l.haveExact = false
	}
	st.invalidate()
}

// undulation returns the geoid undulation at geodetic (lat, lon), or
// ok=false if no geoid is attached or the point is outside it.
func (st *Stepper) undulation(lat, lon float64) (u float64, ok bool) {
	if st.geoid == nil {
		return 0, false
	}
	glon := math.Mod(lon, 360)
	if glon < 0 {
		glon += 360
	}
	u, inside, err := st.geoid.ElevationIn(lat, glon)
	if err != nil || !inside {
		return 0, false
	}
	return u, true
}

// exactGeographic converts pos to the layer's geographic coordinates
// without using the local transform cache.
func (st *Stepper) exactGeographic(l *layer, pos [3]float64) ([geoComponents]float64, error) {
	var g [geoComponents]float64
	lat, lon, alt := ECEFToGeodetic(pos)
	if u, ok := st.undulation(lat, lon); ok {
		alt -= u
	}
	g[geoLat], g[geoLon], g[geoAlt] = lat, lon, alt
	if l.kind == layerTile && l.tile.proj != nil {
		x, y, err := l.tile.proj.Project(lat, lon)
		if err != nil {
			return g, err
		}
		g[geoX], g[geoY] = x, y
	} else {
		g[geoX], g[geoY] = lon, lat
	}
	return g, nil
}

// geographic converts pos to the layer's geographic coordinates,
// using the layer's cached affine transform when the position is
// within LocalRange of the cached reference point. After an exact
// conversion the cache is refreshed only when the point has moved
// less than a third of LocalRange since the previous exact
// conversion, so that a caller jumping around does not pay for
// Jacobian estimates it will never use.
func (st *Stepper) geographic(l *layer, pos [3]float64) ([geoComponents]float64, error) {
	if st.LocalRange > 0 && l.jac != nil {
		d := [3]float64{pos[0] - l.refECEF[0], pos[1] - l.refECEF[1], pos[2] - l.refECEF[2]}
		if norm3(d) <= st.LocalRange {
			var dg mat.VecDense
			dg.MulVec(l.jac, mat.NewVecDense(3, d[:]))
			var g [geoComponents]float64
			for i := 0; i < geoComponents; i++ {
				g[i] = l.refGeo[i] + dg.AtVec(i)
			}
			return g, nil
		}
	}
	g, err := st.exactGeographic(l, pos)
	if err != nil {
		return g, err
	}
	if st.LocalRange > 0 {
		if l.haveExact && dist3(pos, l.lastExact) < st.LocalRange/3 {
			if err := st.refreshLocal(l, pos, g); err != nil {
				return g, err
			}
		}
		l.lastExact = pos
		l.haveExact = true
	}
	return g, nil
}

// refreshLocal re-centers the layer's local transform on pos,
// estimating the Jacobian by central finite differences along each
// ECEF axis.
func (st *Stepper) refreshLocal(l *layer, pos [3]float64, g [geoComponents]float64) error {
	jac := mat.NewDense(geoComponents, 3, nil)
	for k := 0; k < 3; k++ {
		pp, pm := pos, pos
		pp[k] += jacobianStep
		pm[k] -= jacobianStep
		gp, err := st.exactGeographic(l, pp)
		if err != nil {
			return err
		}
		gm, err := st.exactGeographic(l, pm)
		if err != nil {
			return err
		}
		for i := 0; i < geoComponents; i++ {
			jac.Set(i, k, (gp[i]-gm[i])/(2*jacobianStep))
		}
	}
	l.jac = jac
	l.refECEF = pos
	l.refGeo = g
	return nil
}

// elevationIn asks the layer for its ground elevation at the
// geographic coordinates g, and whether g is inside its domain.
func (l *layer) elevationIn(g [geoComponents]float64) (float64, bool, error) {
	switch l.kind {
	case layerFlat:
		return l.ground, true, nil
	case layerStack:
		return l.stack.ElevationIn(g[geoLat], g[geoLon])
	case layerClient:
		return l.client.ElevationIn(g[geoLat], g[geoLon])
	case layerTile:
		z, inside := l.tile.grid.ElevationIn(g[geoX], g[geoY])
		return z, inside, nil
	}
	panic(fmt.Errorf("terrain: unknown layer kind %d", l.kind))
}

// elevationAt is elevationIn from geodetic coordinates, projecting
// first for tile layers.
func (l *layer) elevationAt(lat, lon float64) (float64, bool, error) {
	switch l.kind {
	case layerFlat:
		return l.ground, true, nil
	case layerStack:
		return l.stack.ElevationIn(lat, lon)
	case layerClient:
		return l.client.ElevationIn(lat, lon)
	case layerTile:
		return l.tile.ElevationIn(lat, lon)
	}
	panic(fmt.Errorf("terrain: unknown layer kind %d", l.kind))
}

// Sample returns the ground elevation and matched layer at the ECEF
// position pos. Sampling the same position twice returns the cached
// result unchanged.
//
// Layers are walked most-recently-added first. The matched layer is
// the first one whose domain contains the position and whose ground
// lies at or below it — the layer the position rests on. A position
// underground of every containing layer matches the first containing
// layer instead, so that descending through a surface flips the
// sample's Below state rather than losing the layer. When no layer's
// domain contains the position the returned sample has Layer == -1
// and the geographic coordinates of the first layer (or zeros if the
// stepper has no layers).
func (st *Stepper) Sample(pos [3]float64) (Sample, error) {
	if st.haveLast && pos == st.last.Position {
		return st.last, nil
	}
	smp := Sample{Position: pos, Layer: -1}
	fallback := -1
	var fallbackG [geoComponents]float64
	var fallbackZ float64
	for i, l := range st.layers {
		g, err := st.geographic(l, pos)
		if err != nil {
			return smp, err
		}
		if i == 0 {
			smp.Geographic = g
		}
		z, inside, err := l.elevationIn(g)
		if err != nil {
			return smp, err
		}
		if !inside {
			continue
		}
		if g[geoAlt] >= z {
			smp.Geographic = g
			smp.Ground = z
			smp.Layer = i
			break
		}
		if fallback < 0 {
			fallback, fallbackG, fallbackZ = i, g, z
		}
	}
	if smp.Layer < 0 && fallback >= 0 {
		smp.Geographic = fallbackG
		smp.Ground = fallbackZ
		smp.Layer = fallback
	}
	st.last = smp
	st.haveLast = true
	return smp, nil
}

// stepLength returns the adaptive step length for smp: proportional
// to the height above (or depth below) ground, with ResolutionFactor
// as the floor near the surface.
func (st *Stepper) stepLength(smp Sample) float64 {
	ds := st.ResolutionFactor
	if smp.Layer >= 0 {
		if h := st.SlopeFactor * math.Abs(smp.Geographic[geoAlt]-smp.Ground); h > ds {
			ds = h
		}
	}
	return ds
}

// sameMedium reports whether two samples are in the same medium: the
// same matched layer, on the same side of its ground.
func sameMedium(a, b Sample) bool {
	return a.Layer == b.Layer && a.Below() == b.Below()
}

// StepIn advances pos by one adaptive step along direction dir,
// returning the sample at the new position and the step length taken.
// A nil dir reports the sample and step length at pos without moving.
// When the step crosses into a different medium (the below-ground
// state flips, or a different layer matches), the step is shortened
// by bisection so that the returned position lies within crossingTol
// of the boundary, on the far side. A position no layer matches is
// reported with Layer == -1 rather than as an error.
func (st *Stepper) StepIn(pos *[3]float64, dir *[3]float64) (Sample, float64, error) {
	return st.step(pos, dir, true)
}

// Step is the hard variant of StepIn: a position outside every
// layer's domain is an error.
func (st *Stepper) Step(pos *[3]float64, dir *[3]float64) (Sample, float64, error) {
	return st.step(pos, dir, false)
}

func (st *Stepper) step(pos *[3]float64, dir *[3]float64, soft bool) (Sample, float64, error) {
	smp, err := st.Sample(*pos)
	if err != nil {
		return smp, 0, err
	}
	if smp.Layer < 0 && !soft {
		return smp, 0, report(fmt.Errorf("in terrain.Stepper.Step: %w: no layer matches position (%g, %g, %g)",
			ErrDomain, pos[0], pos[1], pos[2]))
	}
	ds := st.stepLength(smp)
	if dir == nil {
		return smp, ds, nil
	}
	start := *pos
	next := [3]float64{start[0] + dir[0]*ds, start[1] + dir[1]*ds, start[2] + dir[2]*ds}
	nsmp, err := st.Sample(next)
	if err != nil {
		return nsmp, 0, err
	}
	if !sameMedium(smp, nsmp) {
		// Bisect the step to localize the crossing, keeping the
		// returned position on the post-step side of the boundary.
		a, b := 0.0, ds
		for b-a > crossingTol {
			m := (a + b) / 2
			msmp, err := st.Sample([3]float64{
				start[0] + dir[0]*m, start[1] + dir[1]*m, start[2] + dir[2]*m})
			if err != nil {
				return msmp, 0, err
			}
			if sameMedium(msmp, nsmp) {
				b = m
			} else {
				a = m
			}
		}
		ds = b
		next = [3]float64{start[0] + dir[0]*ds, start[1] + dir[1]*ds, start[2] + dir[2]*ds}
		if nsmp, err = st.Sample(next); err != nil {
			return nsmp, 0, err
		}
	}
	*pos = next
	return nsmp, ds, nil
}

// PositionIn converts geodetic (lat, lon) and a height above the
// ground to an ECEF position, using the first layer whose domain
// contains the point. When no layer matches, the returned layer index
// is -1 and the position is on the ellipsoid at height.
func (st *Stepper) PositionIn(lat, lon, height float64) ([3]float64, int, error) {
	return st.position(lat, lon, height, true)
}

// Position is the hard variant of PositionIn.
func (st *Stepper) Position(lat, lon, height float64) ([3]float64, int, error) {
	return st.position(lat, lon, height, false)
}

func (st *Stepper) position(lat, lon, height float64, soft bool) ([3]float64, int, error) {
	for i, l := range st.layers {
		z, inside, err := l.elevationAt(lat, lon)
		if err != nil {
			return [3]float64{}, -1, err
		}
		if !inside {
			continue
		}
		alt := z + height
		if u, ok := st.undulation(lat, lon); ok {
			alt += u
		}
		return ECEFFromGeodetic(lat, lon, alt), i, nil
	}
	if !soft {
		return [3]float64{}, -1, report(fmt.Errorf("in terrain.Stepper.Position: %w: no layer matches (%g, %g)",
			ErrDomain, lat, lon))
	}
	return ECEFFromGeodetic(lat, lon, height), -1, nil
}

func norm3(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func dist3(a, b [3]float64) float64 {
	return norm3([3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]})
}
