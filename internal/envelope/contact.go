package envelope

import (
	"fmt"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/message"
)

func sharedContact(c message.SharedContact) ([]byte, error) {
	var w writer

	var nw writer
	nw.optStr(nameFamily, c.Name.Family)
	nw.optStr(nameGiven, c.Name.Given)
	nw.optStr(nameMiddle, c.Name.Middle)
	nw.optStr(namePrefix, c.Name.Prefix)
	nw.optStr(nameSuffix, c.Name.Suffix)
	nw.optStr(nameDisplay, c.Name.Display)
	w.bytes(contactName, nw.b)

	for _, a := range c.Addresses {
		w.bytes(contactAddress, postalAddress(a))
	}

	for _, e := range c.Emails {
		var ew writer
		ew.str(valueValue, e.Value)
		ew.varint(valueType, emailType(e.Type))
		ew.optStr(valueLabel, e.Label)
		w.bytes(contactEmail, ew.b)
	}

	for _, p := range c.Phones {
		var pw writer
		pw.str(valueValue, p.Value)
		pw.varint(valueType, phoneType(p.Type))
		pw.optStr(valueLabel, p.Label)
		w.bytes(contactNumber, pw.b)
	}

	if c.Avatar != nil {
		if c.Avatar.Attachment == nil {
			return nil, delivery.Encodingf("shared contact avatar without attachment")
		}
		p, err := attachmentPointer(c.Avatar.Attachment)
		if err != nil {
			return nil, err
		}
		var aw writer
		aw.bytes(avatarAvatar, p)
		aw.boolean(avatarIsProfile, c.Avatar.IsProfile)
		w.bytes(contactAvatar, aw.b)
	}

	w.optStr(contactOrganization, c.Organization)
	return w.b, nil
}

func postalAddress(a message.PostalAddress) []byte {
	var w writer
	switch a.Type {
	case message.AddressHome:
		w.varint(addressType, 1)
	case message.AddressWork:
		w.varint(addressType, 2)
	case message.AddressCustom:
		w.varint(addressType, 3)
	default:
		panic(fmt.Sprintf("envelope: unknown postal address type %d", a.Type))
	}
	w.optStr(addressCity, a.City)
	w.optStr(addressCountry, a.Country)
	w.optStr(addressLabel, a.Label)
	w.optStr(addressNeighborhood, a.Neighborhood)
	w.optStr(addressPobox, a.Pobox)
	w.optStr(addressPostcode, a.Postcode)
	w.optStr(addressRegion, a.Region)
	w.optStr(addressStreet, a.Street)
	return w.b
}

func emailType(t message.EmailType) uint64 {
	switch t {
	case message.EmailHome:
		return 1
	case message.EmailMobile:
		return 2
	case message.EmailWork:
		return 3
	case message.EmailCustom:
		return 4
	default:
		panic(fmt.Sprintf("envelope: unknown email type %d", t))
	}
}

func phoneType(t message.PhoneType) uint64 {
	switch t {
	case message.PhoneHome:
		return 1
	case message.PhoneMobile:
		return 2
	case message.PhoneWork:
		return 3
	case message.PhoneCustom:
		return 4
	default:
		panic(fmt.Sprintf("envelope: unknown phone type %d", t))
	}
}
