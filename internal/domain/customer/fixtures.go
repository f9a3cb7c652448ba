package customer

// DemoUsers returns the demo customer accounts used by seeding and reset.
func DemoUsers() []User {
	return []User{
		{ID: 1, Name: "Alice Johnson", Email: "alice@example.com", CardLast4: "4242"},
		{ID: 2, Name: "Bob Smith", Email: "bob@example.com", CardLast4: "5555"},
		{ID: 3, Name: "Carol Davis", Email: "carol@example.com", CardLast4: "7890"},
	}
}

// DemoOrders returns the demo orders used by seeding and reset.
// CreatedAt is left zero; stores stamp it on insert.
func DemoOrders() []Order {
	return []Order{
		{ID: 101, UserID: 1, Status: StatusShipped, Amount: 29.99,
			Items: []LineItem{{Name: "Wireless Mouse", Qty: 1}}},
		{ID: 102, UserID: 2, Status: StatusDelivered, Amount: 89.50,
			Items: []LineItem{{Name: "Keyboard", Qty: 1}, {Name: "Mouse Pad", Qty: 2}}},
		{ID: 103, UserID: 3, Status: StatusProcessing, Amount: 599.99,
			Items: []LineItem{{Name: "Laptop Stand", Qty: 1}, {Name: "USB-C Hub", Qty: 1}}},
		{ID: 104, UserID: 1, Status: StatusDelivered, Amount: 45.00,
			Items: []LineItem{{Name: "Webcam", Qty: 1}}},
	}
}
