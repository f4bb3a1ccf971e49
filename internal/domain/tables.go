package domain

// Tables lists the models handled by AutoMigrate, parents before children.
var Tables = []interface{}{
	&User{},
	&Product{},
	&Service{},
	&Order{},
	&OrderProduct{},
	&Availability{},
}
