package message

// SharedContact is a contact card embedded in a data message.
type SharedContact struct {
	Name         ContactName
	Avatar       *ContactAvatar
	Phones       []Phone
	Emails       []Email
	Addresses    []PostalAddress
	Organization *string
}

// ContactName holds the optional name parts of a shared contact.
type ContactName struct {
	Given   *string
	Family  *string
	Prefix  *string
	Suffix  *string
	Middle  *string
	Display *string
}

// ContactAvatar is the picture of a shared contact.
type ContactAvatar struct {
	Attachment Attachment
	IsProfile  bool
}

// PhoneType classifies a phone number. The zero value is not a valid type.
type PhoneType int

const (
	PhoneHome PhoneType = iota + 1
	PhoneMobile
	PhoneWork
	PhoneCustom
)

// Phone is a phone number of a shared contact.
type Phone struct {
	Value string
	Type  PhoneType
	Label *string
}

// EmailType classifies an email address. The zero value is not a valid type.
type EmailType int

const (
	EmailHome EmailType = iota + 1
	EmailMobile
	EmailWork
	EmailCustom
)

// Email is an email address of a shared contact.
type Email struct {
	Value string
	Type  EmailType
	Label *string
}

// AddressType classifies a postal address. The zero value is not a valid type.
type AddressType int

const (
	AddressHome AddressType = iota + 1
	AddressWork
	AddressCustom
)

// PostalAddress is a postal address of a shared contact.
type PostalAddress struct {
	Type         AddressType
	Label        *string
	Street       *string
	Pobox        *string
	Neighborhood *string
	City         *string
	Region       *string
	Postcode     *string
	Country      *string
}
