package datanodes

import (
	"errors"
	"testing"
)

func TestAsType(t *testing.T) {
	device, err := RegisterVariant("device", "device_dn")
	tassert(t, err == nil, "%v", err)
	got, ok := LookupVariant("device")
	tassert(t, ok && got == device, "lookup %v %v", got, ok)

	// registering again with the same class is fine
	_, err = RegisterVariant("device", "device_dn")
	tassert(t, err == nil, "%v", err)
	_, err = RegisterVariant("device", "other")
	var ve *ValidationError
	tassert(t, errors.As(err, &ve), "expected ValidationError, got %v", err)

	dn := mkroot(t, "dev1", "device_dn")
	tassert(t, dn.Variant() == Generic, "variant %v", dn.Variant())
	typed, err := dn.AsType(device)
	tassert(t, err == nil, "%v", err)
	tassert(t, typed != dn, "AsType returned the same handler")
	tassert(t, typed.Dir() == dn.Dir(), "dir %s", typed.Dir())
	tassert(t, typed.Variant() == device, "variant %v", typed.Variant())

	other := mkroot(t, "m", "measurements_dn")
	_, err = other.AsType(device)
	var cm *ClassMismatchError
	tassert(t, errors.As(err, &cm), "expected ClassMismatchError, got %v", err)

	// generic accepts any class
	back, err := typed.AsType(Generic)
	tassert(t, err == nil, "%v", err)
	tassert(t, back.Variant() == Generic, "variant %v", back.Variant())

	_, err = dn.AsType(Variant{Name: "unregistered", Class: "device_dn"})
	tassert(t, errors.As(err, &ve), "expected ValidationError, got %v", err)

	typed, err = OpenAs(dn.Dir(), device)
	tassert(t, err == nil, "%v", err)
	tassert(t, typed.Variant() == device, "variant %v", typed.Variant())
}
