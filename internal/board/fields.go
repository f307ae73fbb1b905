package board

func (c *Circuit) fieldValue(field string) (string, bool) {
	switch field {
	case FieldFailureDateTime:
		return c.FailureDateTime, true
	case FieldRestorationDateTime:
		return c.RestorationDateTime, true
	case FieldFaultySection:
		return c.FaultySection, true
	case FieldRemarks:
		return c.Remarks, true
	case FieldStatus:
		return string(c.Status), true
	default:
		return "", false
	}
}

func (c *Circuit) setFieldValue(field, value string) {
	switch field {
	case FieldFailureDateTime:
		c.FailureDateTime = value
	case FieldRestorationDateTime:
		c.RestorationDateTime = value
	case FieldFaultySection:
		c.FaultySection = value
	case FieldRemarks:
		c.Remarks = value
	case FieldStatus:
		c.Status = Status(value)
	}
}
