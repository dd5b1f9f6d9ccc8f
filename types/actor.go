package types

// ----------------
// actor codes
// ----------------

/**
 * ActorCode is one of exactly four enumerated role categories allowed to
 * hold a wrapped key. Codes are fixed; free-form role strings never cross
 * into the core.
 */
type ActorCode string

const (
	ActorPatient  ActorCode = "01"
	ActorDoctor   ActorCode = "02"
	ActorHospital ActorCode = "03"
	ActorInsurer  ActorCode = "04"
)

var actorLabels = map[ActorCode]string{
	ActorPatient:  "patient",
	ActorDoctor:   "doctor",
	ActorHospital: "hospital",
	ActorInsurer:  "insurer",
}

var actorCodes = map[string]ActorCode{
	"patient":  ActorPatient,
	"doctor":   ActorDoctor,
	"hospital": ActorHospital,
	"insurer":  ActorInsurer,
}

func (a ActorCode) Valid() bool {
	_, ok := actorLabels[a]
	return ok
}

func (a ActorCode) String() string {
	return string(a)
}

func (a ActorCode) Label() string {
	return actorLabels[a]
}

/**
 * ParseActorCode validates a raw code at a boundary.
 */
func ParseActorCode(raw string) (ActorCode, error) {
	code := ActorCode(raw)
	if !code.Valid() {
		return "", Wrapf(ErrUnknownActor, "code=%s", raw)
	}
	return code, nil
}

/**
 * ActorFromLabel maps a role label back to its code.
 */
func ActorFromLabel(label string) (ActorCode, error) {
	code, ok := actorCodes[label]
	if !ok {
		return "", Wrapf(ErrUnknownActor, "label=%s", label)
	}
	return code, nil
}

/**
 * ParseActorCodes validates a batch, rejecting duplicates.
 */
func ParseActorCodes(raw []string) ([]ActorCode, error) {
	if len(raw) == 0 {
		return nil, Wrapf(ErrMissingField, "actorCodes")
	}
	seen := make(map[ActorCode]struct{}, len(raw))
	codes := make([]ActorCode, 0, len(raw))
	for _, r := range raw {
		code, err := ParseActorCode(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}
