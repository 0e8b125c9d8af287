package helper

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidateStructIsPopulated will check if any mandatory fields in cfg are missing.
// It uses struct tags to determine which fields are mandatory and the error text to fetch.
// The error text returned is just a list of the struct tags with key "errorTxt".
func ValidateStructIsPopulated(cfg interface{}) (err error) {
	errs := make([]string, 0)
	GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// GetStructErrorTxt4UnsetFields will reflect over interface i and build a slice containing error text strings for any
// struct fields that are unset i.e. are the zero value for the given field type.
// The error text strings are fetched from the errorTxt tags values found in the supplied interface (struct)
// where tag mandatory:"yes" is set.
func GetStructErrorTxt4UnsetFields(i interface{}, errTags *[]string) {
	val := reflect.ValueOf(i)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()
	for idx := 0; idx < val.NumField(); idx++ { // for each field in the value/struct...
		f := val.Field(idx)
		if typ.Field(idx).PkgPath != "" { // if the field is not exported...
			continue
		}
		switch f.Kind() {
		case reflect.Struct: // descend into nested structs.
			GetStructErrorTxt4UnsetFields(f.Interface(), errTags)
		case reflect.Map, reflect.Slice, reflect.Interface, reflect.Ptr, reflect.Func, reflect.Chan:
			if f.IsNil() && typ.Field(idx).Tag.Get("mandatory") == "yes" {
				*errTags = append(*errTags, typ.Field(idx).Tag.Get("errorTxt"))
			}
		default:
			if f.Interface() == reflect.Zero(f.Type()).Interface() &&
				typ.Field(idx).Tag.Get("mandatory") == "yes" { // if the field is its zero value and it is mandatory...
				*errTags = append(*errTags, typ.Field(idx).Tag.Get("errorTxt"))
			}
		}
	}
}
