package model

// BankAccount is an own bank account that statements are imported into.
type BankAccount struct {
	ID        int64
	Name      string
	AccountNo string
	RoutingNo string
}

// Partner is a business partner (customer or vendor).
type Partner struct {
	ID   int64
	Name string
	IBAN []string // IBANs of the partner's bank accounts
}
