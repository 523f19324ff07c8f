package optim

import "math"

// CosineWarmRestarts entspricht torch CosineAnnealingWarmRestarts
type CosineWarmRestarts struct {
	BaseLR float32
	T0     int
	TMult  int
	EtaMin float32

	epoch int
	tCur  int
	tI    int
}

// NewCosineWarmRestarts erstellt den Plan in Epoche 0
func NewCosineWarmRestarts(baseLR float32, t0, tMult int, etaMin float32) *CosineWarmRestarts {
	if t0 <= 0 {
		t0 = 1
	}
	if tMult < 1 {
		tMult = 1
	}
	return &CosineWarmRestarts{BaseLR: baseLR, T0: t0, TMult: tMult, EtaMin: etaMin, tI: t0}
}

// LR ist die Lernrate der aktuellen Epoche
func (s *CosineWarmRestarts) LR() float32 {
	cos := math.Cos(math.Pi * float64(s.tCur) / float64(s.tI))
	return s.EtaMin + float32(float64(s.BaseLR-s.EtaMin)*(1+cos)/2)
}

// Step geht eine Epoche weiter; am Periodenende beginnt eine laengere Periode
func (s *CosineWarmRestarts) Step() {
	s.epoch++
	s.tCur++
	if s.tCur >= s.tI {
		s.tCur -= s.tI
		s.tI *= s.TMult
	}
}

func (s *CosineWarmRestarts) Epoch() int { return s.epoch }

// Restarted meldet ob die aktuelle Epoche eine neue Periode beginnt
func (s *CosineWarmRestarts) Restarted() bool {
	return s.epoch > 0 && s.tCur == 0
}

func (s *CosineWarmRestarts) Reset() {
	s.epoch, s.tCur, s.tI = 0, 0, s.T0
}
