// Package voxel содержит плотную воксельную сетку, общую для физики и рендера.
package voxel

import "math"

// Voxel 4 байта: три канала цвета/материала и альфа.
// Альфа 0 означает пустую ячейку, любая другая означает твёрдую.
type Voxel [4]uint8

// Zero пустой воксель
var Zero Voxel

// Empty сообщает, пуста ли ячейка
func (v Voxel) Empty() bool { return v[3] == 0 }

// Solid сообщает, занята ли ячейка
func (v Voxel) Solid() bool { return v[3] != 0 }

// Struck значение user data, которым помечается коллайдер после попадания луча.
// При распаковке даёт белый непрозрачный воксель.
const Struck uint64 = math.MaxUint64

// Pack упаковывает цвет вокселя в user data коллайдера (младшие 32 бита)
func Pack(v Voxel) uint64 {
	return uint64(v[0]) |
		uint64(v[1])<<8 |
		uint64(v[2])<<16 |
		uint64(v[3])<<24
}

// Unpack восстанавливает воксель из user data коллайдера
func Unpack(userData uint64) Voxel {
	return Voxel{
		uint8(userData & 0xFF),
		uint8((userData >> 8) & 0xFF),
		uint8((userData >> 16) & 0xFF),
		uint8((userData >> 24) & 0xFF),
	}
}
