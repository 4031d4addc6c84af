package gaussian

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// DefaultTerms 级数截断的默认项数
const DefaultTerms = 100

// ErrInvalidParameter 参数非法（stdev <= 0 或 terms < 0）
var ErrInvalidParameter = errors.New("gaussian: invalid parameter")

// Model 正态分布模型（均值 + 标准差）。
// 构造后不可变，所有方法均为纯函数，可并发只读使用。
type Model struct {
	mean  float64
	stdev float64
}

// New 创建正态分布模型。stdev 必须严格大于 0。
func New(mean, stdev float64) (*Model, error) {
	// 注意：!(stdev > 0) 同时拒绝 NaN
	if !(stdev > 0) {
		return nil, fmt.Errorf("%w: stdev must be > 0, got %v", ErrInvalidParameter, stdev)
	}
	return &Model{mean: mean, stdev: stdev}, nil
}

// Standard 标准正态分布 N(0, 1)
func Standard() *Model {
	return &Model{mean: 0, stdev: 1}
}

// Mean 均值
func (m *Model) Mean() float64 { return m.mean }

// Stdev 标准差
func (m *Model) Stdev() float64 { return m.stdev }

// Variance 方差 = stdev²
func (m *Model) Variance() float64 { return m.stdev * m.stdev }

// Density 概率密度函数：
//
//	density(x) = 1/(stdev·√(2π)) · exp(-((x-mean)/stdev)²/2)
//
// 对非有限输入不做校验，按 IEEE 语义传播（Density(±Inf)=0，Density(NaN)=NaN）。
func (m *Model) Density(x float64) float64 {
	t := (x - m.mean) / m.stdev
	return math.Exp(-t*t/2) / (m.stdev * math.Sqrt(2*math.Pi))
}

// Cumulative 累积分布函数的级数近似，使用默认项数（100）。
func (m *Model) Cumulative(x float64) float64 {
	v, _ := m.CumulativeN(x, DefaultTerms)
	return v
}

// CumulativeN 用截断奇次幂级数近似 CDF。对标准化值 t = (x-mean)/stdev：
//
//	series(t) = Σ_{i=0..terms-1} t^(2i+1)/(2i+1)!!   （奇数双阶乘）
//	cumulative(x) ≈ 0.5 + φ(t)·series(t)             （φ 为标准正态密度）
//
// 仅在 |t| ≲ 10 范围内可靠；更大的 |t| 下级数在浮点上发散，结果不可信。
// 这里刻意不做 clamp、也不切换算法，保留原始近似的契约。
// terms 越大精度越高，计算量线性增长；terms < 0 返回错误。
func (m *Model) CumulativeN(x float64, terms int) (float64, error) {
	if terms < 0 {
		return 0, fmt.Errorf("%w: terms must be >= 0, got %d", ErrInvalidParameter, terms)
	}
	t := (x - m.mean) / m.stdev
	// ±Inf 时密度为 0 而级数为 ∞，IEEE 下 0·∞ = NaN，这里显式收敛到 0/1，
	// 使无界区间的概率质量 ≈ 1 成立。NaN 直接传播。
	if math.IsInf(t, 1) {
		return 1, nil
	}
	if math.IsInf(t, -1) {
		return 0, nil
	}
	if math.IsNaN(t) {
		return math.NaN(), nil
	}

	// term_i = t^(2i+1)/(2i+1)!!，递推：term_i = term_{i-1} · t²/(2i+1)
	series := 0.0
	term := t
	for i := 0; i < terms; i++ {
		if i > 0 {
			term *= t * t / float64(2*i+1)
		}
		series += term
	}
	phi := math.Exp(-t*t/2) / math.Sqrt(2*math.Pi)
	return 0.5 + phi*series, nil
}

// IntervalProbability 区间 [min, max] 内的概率质量：
//
//	Cumulative(max) - Cumulative(min)
//
// 传 math.Inf(-1) / math.Inf(1) 可还原无界区间（总概率 ≈ 1）。
func (m *Model) IntervalProbability(min, max float64) float64 {
	return m.Cumulative(max) - m.Cumulative(min)
}

// Draw 从分布中抽取一个随机点：mean + stdev·N(0,1)。
// rng 为 nil 时使用全局随机源。
func (m *Model) Draw(rng *rand.Rand) float64 {
	if rng == nil {
		return m.mean + m.stdev*rand.NormFloat64()
	}
	return m.mean + m.stdev*rng.NormFloat64()
}
