package guard

const (
	ReasonInvalidURL      = "Invalid URL"
	ReasonInvalidProtocol = "Invalid protocol"
	ReasonBlockedHost     = "Blocked hostname"
	ReasonBlockedPattern  = "Blocked hostname pattern"
	ReasonPrivateIP       = "Private IP address"
	ReasonLoopbackIP      = "Loopback address"
	ReasonResolvesPrivate = "Resolves to private IP"
)

// Verdict is the outcome of validating one URL. Reason is set only when
// Safe is false; Warning may accompany a safe verdict under the
// permissive policy.
type Verdict struct {
	Safe    bool   `json:"safe"`
	Reason  string `json:"reason,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Policy selects how private targets are treated.
//
// BlockPrivateIPs rejects every private, link-local or loopback target.
// BlockLoopbackOnly, used when BlockPrivateIPs is false, rejects literal
// loopback addresses and lets other private targets through with a warning.
type Policy struct {
	Name              string
	BlockPrivateIPs   bool
	BlockLoopbackOnly bool
}

var (
	// StrictPolicy guards fetches of content picked by third parties, such as
	// images embedded in feed items.
	StrictPolicy = Policy{Name: "strict", BlockPrivateIPs: true}

	// PermissivePolicy guards feed URLs supplied by the reader, where
	// self-hosted and intranet feeds are legitimate.
	PermissivePolicy = Policy{Name: "permissive", BlockLoopbackOnly: true}
)

func allow() Verdict {
	return Verdict{Safe: true}
}

func allowWithWarning(warning string) Verdict {
	return Verdict{Safe: true, Warning: warning}
}

func deny(reason string) Verdict {
	return Verdict{Safe: false, Reason: reason}
}
