package validate

// Sentinel is an opaque, identity-compared marker used where a check
// needs a three- or two-valued mode switch that must never collide
// with a real claim value. Callers compare by identity (==), never by
// the zero value or a string form.
type Sentinel struct{ name string }

var (
	// SkipSubjectCheck disables the userinfo sub-equality check.
	SkipSubjectCheck = &Sentinel{"skipSubjectCheck"}
	// SkipStateCheck disables the authorization-callback state check.
	SkipStateCheck = &Sentinel{"skipStateCheck"}
	// ExpectNoState requires the authorization callback to carry no
	// state parameter at all.
	ExpectNoState = &Sentinel{"expectNoState"}
	// ExpectNoNonce requires the ID Token to carry no nonce claim.
	ExpectNoNonce = &Sentinel{"expectNoNonce"}
	// SkipAuthTimeCheck disables the auth_time/maxAge check.
	SkipAuthTimeCheck = &Sentinel{"skipAuthTimeCheck"}
)

// StringOrSentinel holds either an expected string value or one of
// this package's sentinels, modeling the three-valued nonce/state
// checks below.
type StringOrSentinel struct {
	Sentinel *Sentinel
	Value    string
}

// Expect wraps a concrete expected value.
func Expect(value string) StringOrSentinel { return StringOrSentinel{Value: value} }

// ExpectSentinel wraps one of this package's singleton sentinels.
func ExpectSentinel(s *Sentinel) StringOrSentinel { return StringOrSentinel{Sentinel: s} }

func (e StringOrSentinel) is(s *Sentinel) bool { return e.Sentinel == s }
