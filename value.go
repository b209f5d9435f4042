package cortex

type undef struct{}

func (undef) String() string { return "Undef" }

// Undef is the value of a signal that has not been computed yet.
var Undef any = undef{}

// IsUndef reports whether v is the Undef sentinel.
func IsUndef(v any) bool {
	_, ok := v.(undef)
	return ok
}
