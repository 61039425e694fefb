package model

// Kind is the closed set of storage object kinds the host knows about.
type Kind int

const (
	KindOther Kind = iota
	KindChest
	KindJunimoChest
	KindMiniFridge
	KindMiniShippingBin
	KindJunimoHut
	KindShippingBin
	KindFridge
	KindObject
)

// TypeName is the player-facing name of the kind.
func (k Kind) TypeName() string {
	switch k {
	case KindChest:
		return "Chest"
	case KindJunimoChest:
		return "Junimo Chest"
	case KindMiniFridge:
		return "Mini-Fridge"
	case KindMiniShippingBin:
		return "Mini-Shipping Bin"
	case KindJunimoHut:
		return "Junimo Hut"
	case KindShippingBin:
		return "Shipping Bin"
	case KindFridge:
		return "Fridge"
	case KindObject:
		return "Object"
	default:
		return "Other"
	}
}

func (k Kind) String() string {
	return k.TypeName()
}
