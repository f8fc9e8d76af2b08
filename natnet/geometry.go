// mocap-recorder - record motion capture streams from NatNet servers
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package natnet

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

const (
	positionSize   = 12
	quaternionSize = 16
)

// Position is a point in the server's coordinate system (metres).
type Position struct {
	X, Y, Z float32
}

// Vector returns the position as an r3.Vector.
func (p Position) Vector() r3.Vector {
	return r3.Vector{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// Quaternion is an orientation as sent on the wire: x, y, z, w.
type Quaternion struct {
	X, Y, Z, W float32
}

// Number returns the orientation as a gonum quaternion, with the
// scalar part in Real.
func (q Quaternion) Number() quat.Number {
	return quat.Number{
		Real: float64(q.W),
		Imag: float64(q.X),
		Jmag: float64(q.Y),
		Kmag: float64(q.Z),
	}
}

func readPosition(r *Reader) (Position, error) {
	if r.Remaining() < positionSize {
		return Position{}, truncated(r.off, positionSize, r.Remaining())
	}
	var p Position
	// Length was checked above so these can't fail.
	p.X, _ = r.Float32()
	p.Y, _ = r.Float32()
	p.Z, _ = r.Float32()
	return p, nil
}

func readQuaternion(r *Reader) (Quaternion, error) {
	if r.Remaining() < quaternionSize {
		return Quaternion{}, truncated(r.off, quaternionSize, r.Remaining())
	}
	var q Quaternion
	q.X, _ = r.Float32()
	q.Y, _ = r.Float32()
	q.Z, _ = r.Float32()
	q.W, _ = r.Float32()
	return q, nil
}
