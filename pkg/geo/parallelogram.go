package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter 构造参数非法（边长 <= 0 或角度越界）
var ErrInvalidParameter = errors.New("geo: invalid parameter")

// Parallelogram 平行四边形：两组对边分别平行且相等。
// 由相邻两边 a、b 及其夹角（度）定义，构造后不可变。
type Parallelogram struct {
	a, b     float64
	angleDeg float64
}

// NewParallelogram 创建平行四边形。要求 a > 0、b > 0、0 < angleDeg < 180。
func NewParallelogram(a, b, angleDeg float64) (*Parallelogram, error) {
	if !(a > 0) || !(b > 0) {
		return nil, fmt.Errorf("%w: sides must be > 0, got a=%v b=%v", ErrInvalidParameter, a, b)
	}
	if !(angleDeg > 0) || !(angleDeg < 180) {
		return nil, fmt.Errorf("%w: angle must be in (0, 180), got %v", ErrInvalidParameter, angleDeg)
	}
	return &Parallelogram{a: a, b: b, angleDeg: angleDeg}, nil
}

// SideA 边 a
func (p *Parallelogram) SideA() float64 { return p.a }

// SideB 边 b
func (p *Parallelogram) SideB() float64 { return p.b }

// AngleDeg 边 a 与边 b 的夹角（度）
func (p *Parallelogram) AngleDeg() float64 { return p.angleDeg }

// Perimeter 周长 = 2(a+b)
func (p *Parallelogram) Perimeter() float64 {
	return 2 * (p.a + p.b)
}

// Area 面积 = a·b·sin(θ)
func (p *Parallelogram) Area() float64 {
	return p.a * p.b * math.Sin(p.angleDeg*math.Pi/180)
}

// Diagonals 两条对角线长度（余弦定理）：
//
//	d1² = a² + b² - 2ab·cos(θ)
//	d2² = a² + b² + 2ab·cos(θ)
func (p *Parallelogram) Diagonals() (d1, d2 float64) {
	cos := math.Cos(p.angleDeg * math.Pi / 180)
	s := p.a*p.a + p.b*p.b
	d1 = math.Sqrt(s - 2*p.a*p.b*cos)
	d2 = math.Sqrt(s + 2*p.a*p.b*cos)
	return d1, d2
}
