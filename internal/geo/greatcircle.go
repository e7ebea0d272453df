package geo

import "math"

type vec3 struct{ x, y, z float64 }

func toVec(c Coordinate) vec3 {
	lat, lon := radians(c.Lat), radians(c.Lon)
	return vec3{math.Cos(lat) * math.Cos(lon), math.Cos(lat) * math.Sin(lon), math.Sin(lat)}
}

func (v vec3) coordinate() Coordinate {
	return Coordinate{
		Lat: degrees(math.Atan2(v.z, math.Hypot(v.x, v.y))),
		Lon: degrees(math.Atan2(v.y, v.x)),
	}
}

func (v vec3) scale(k float64) vec3 { return vec3{v.x * k, v.y * k, v.z * k} }
func (v vec3) add(o vec3) vec3      { return vec3{v.x + o.x, v.y + o.y, v.z + o.z} }
func (v vec3) dot(o vec3) float64   { return v.x*o.x + v.y*o.y + v.z*o.z }
func (v vec3) norm() float64        { return math.Sqrt(v.dot(v)) }

func (v vec3) cross(o vec3) vec3 {
	return vec3{v.y*o.z - v.z*o.y, v.z*o.x - v.x*o.z, v.x*o.y - v.y*o.x}
}

// GreatCircle is the shorter great-circle arc between two coordinates. It is
// well defined across the antimeridian and over the poles.
type GreatCircle struct {
	from, to Coordinate
	start    vec3
	tangent  vec3 // unit vector at start pointing along the arc
	normal   vec3 // unit normal of the arc plane, to the left of travel
	angle    float64
}

// NewGreatCircle returns the arc from a to b. For antipodal points, where
// every meridian-like circle is shortest, an arbitrary but fixed one is used.
func NewGreatCircle(a, b Coordinate) GreatCircle {
	p, q := toVec(a), toVec(b)
	n := p.cross(q)
	angle := math.Atan2(n.norm(), p.dot(q))

	if n.norm() < 1e-12 {
		axis := vec3{z: 1}
		if math.Abs(p.z) > 0.9 {
			axis = vec3{x: 1}
		}
		n = p.cross(axis)
	}
	n = n.scale(1 / n.norm())

	return GreatCircle{
		from:    a,
		to:      b,
		start:   p,
		tangent: n.cross(p),
		normal:  n,
		angle:   angle,
	}
}

// LengthKm returns the arc length.
func (g GreatCircle) LengthKm() float64 {
	return g.angle * EarthRadiusKm
}

// At returns the point at fraction f (0..1) of the arc. The endpoints are
// returned exactly as given.
func (g GreatCircle) At(f float64) Coordinate {
	switch {
	case f <= 0:
		return g.from
	case f >= 1:
		return g.to
	}
	return g.point(f).coordinate()
}

// Across returns the point at fraction f of the arc moved distanceKm at a
// right angle to it. Positive distances move to the left of travel.
func (g GreatCircle) Across(f, distanceKm float64) Coordinate {
	if distanceKm == 0 {
		return g.At(f)
	}
	theta := distanceKm / EarthRadiusKm
	p := g.point(f)
	return p.scale(math.Cos(theta)).add(g.normal.scale(math.Sin(theta))).coordinate()
}

func (g GreatCircle) point(f float64) vec3 {
	t := f * g.angle
	return g.start.scale(math.Cos(t)).add(g.tangent.scale(math.Sin(t)))
}
