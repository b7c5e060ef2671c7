package model

// Level is the depth of navigation.
type Level int

const (
	LevelCountry Level = iota
	LevelProvince
	LevelDepartment
)

// String returns a human-readable label for the level.
func (l Level) String() string {
	switch l {
	case LevelCountry:
		return "country"
	case LevelProvince:
		return "province"
	case LevelDepartment:
		return "department"
	default:
		return "unknown"
	}
}

// Selection is the transient navigation context: the level and the entities
// selected to reach it. Province is set from LevelProvince on, Department
// only at LevelDepartment.
type Selection struct {
	Level      Level
	Province   *Province
	Department *Department
}

// ProvinceID returns the selected province id or "".
func (s Selection) ProvinceID() string {
	if s.Province == nil {
		return ""
	}
	return s.Province.ID
}

// DepartmentID returns the selected department id or "".
func (s Selection) DepartmentID() string {
	if s.Department == nil {
		return ""
	}
	return s.Department.ID
}
