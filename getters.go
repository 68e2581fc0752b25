package configmanager

import "fmt"

// Typed accessors for the common field kinds. They accept both the in-process
// representation (whatever Set stored) and the post-load representation
// (int64/float64 numbers, []interface{} arrays).

// GetString returns the value of name as a string.
func (c *Config) GetString(name string) (string, error) {
	v, ok := c.GetOK(name)
	if !ok {
		return "", fmt.Errorf("field %q not found", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is not a string", name)
	}
	return s, nil
}

// GetBool returns the value of name as a bool.
func (c *Config) GetBool(name string) (bool, error) {
	v, ok := c.GetOK(name)
	if !ok {
		return false, fmt.Errorf("field %q not found", name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q is not a bool", name)
	}
	return b, nil
}

// GetInt returns the value of name as an int64.
func (c *Config) GetInt(name string) (int64, error) {
	v, ok := c.GetOK(name)
	if !ok {
		return 0, fmt.Errorf("field %q not found", name)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("field %q is not an integer", name)
	}
}

// GetFloat returns the value of name as a float64.
func (c *Config) GetFloat(name string) (float64, error) {
	v, ok := c.GetOK(name)
	if !ok {
		return 0, fmt.Errorf("field %q not found", name)
	}
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("field %q is not a number", name)
	}
}

// GetStrings returns the value of name as a slice of strings. Arrays read
// back from disk arrive as []interface{} and are converted elementwise.
func (c *Config) GetStrings(name string) ([]string, error) {
	v, ok := c.GetOK(name)
	if !ok {
		return nil, fmt.Errorf("field %q not found", name)
	}
	switch items := v.(type) {
	case []string:
		return items, nil
	case []interface{}:
		out := make([]string, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %q is not an array of strings", name)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q is not an array of strings", name)
	}
}
