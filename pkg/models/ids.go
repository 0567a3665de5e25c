package models

import (
	"strconv"

	"github.com/google/uuid"
)

var propertyNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("rental-valuation/property"))

// PropertyID derives a stable id from the owning company and the property's
// position in the record.
func PropertyID(companyName string, p PropertyRecord, index int) string {
	key := companyName + "\x00" + p.Name + "\x00" + p.Location + "\x00" + strconv.Itoa(index)
	return uuid.NewSHA1(propertyNamespace, []byte(key)).String()
}

// AssignPropertyIDs fills empty or duplicated ids in place so every id is
// unique within the record.
func AssignPropertyIDs(companyName string, props []PropertyRecord) {
	seen := make(map[string]bool, len(props))
	for i := range props {
		if props[i].ID == "" || seen[props[i].ID] {
			props[i].ID = PropertyID(companyName, props[i], i)
		}
		seen[props[i].ID] = true
	}
}
