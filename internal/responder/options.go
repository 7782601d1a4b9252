package responder

// Option is a functional option for configuring a Responder. All
// options are applied during New() before the socket is opened.
type Option func(*Responder) error

// WithHostname sets the short host name this responder answers
// queries for, overriding os.Hostname(). The name is truncated at the
// first '.' and to 63 octets, matching the single-label restriction
// RFC 4795 places on LLMNR queries.
func WithHostname(hostname string) Option {
	return func(r *Responder) error {
		label, err := hostLabel(hostname)
		if err != nil {
			return err
		}
		r.hostname = label
		return nil
	}
}
