package wallet

// SeedTransaction records tx in an in-memory repository and applies it to the
// wallet balance. Intended for tests and local fixtures.
func SeedTransaction(repo Repository, tx Transaction) {
	if mem, ok := repo.(*memoryRepository); ok {
		mem.seed(tx)
	}
}
