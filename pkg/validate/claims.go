package validate

import "github.com/mitchellh/mapstructure"

// Decode maps a validated claims bag onto out (a pointer to a
// caller-defined struct), for custom/namespaced claims this package's
// fixed Claims type doesn't name. Unknown claim keys are ignored;
// mapstructure's own tag conventions (`mapstructure:"..."`) apply.
func Decode(claims Claims, out interface{}) error {
	return mapstructure.Decode(map[string]interface{}(claims), out)
}
