package cortex

import "fmt"

// Variant classifies the role a signal plays in inference.
type Variant uint8

const (
	Unspecified Variant = iota
	MessageToFactor
	MessageToVariable
	ProductOfMessages
	IndividualMarginal
	JointMarginal
)

func (v Variant) String() string {
	switch v {
	case Unspecified:
		return ""
	case MessageToFactor:
		return "MessageToFactor"
	case MessageToVariable:
		return "MessageToVariable"
	case ProductOfMessages:
		return "ProductOfMessages"
	case IndividualMarginal:
		return "IndividualMarginal"
	case JointMarginal:
		return "JointMarginal"
	default:
		return fmt.Sprintf("UnknownType(0x%02x)", uint8(v))
	}
}
