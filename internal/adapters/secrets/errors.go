package secrets

import "errors"

// ErrNoMapping is returned when neither source yields a host to API key mapping.
var ErrNoMapping = errors.New("no API keys mapping available, set either AWS_API_KEYS_SECRET or API_KEYS_MAPPING environment variable")
