package clock

import "time"

// Clock fornece o instante atual; injetado em tudo que precisa de "agora"
type Clock interface {
	Now() time.Time
}

// Func adapta uma função comum para Clock
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// System retorna o relógio de parede em UTC
func System() Clock {
	return Func(func() time.Time { return time.Now().UTC() })
}

// Fixed retorna sempre o mesmo instante (testes)
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}
