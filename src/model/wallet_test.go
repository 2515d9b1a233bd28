package model

import "testing"

func TestWatchedWalletCRUD(t *testing.T) {
	db := setupTestDB(t)
	user := newTestUser(t, db, "liam")

	wallet := &WatchedWallet{
		UserID:  user.ID,
		Chain:   "ethereum",
		Address: "0xabc",
		Symbol:  "ETH",
	}
	if err := CreateWatchedWallet(db, wallet); err != nil {
		t.Fatalf("CreateWatchedWallet: %v", err)
	}
	if wallet.ID == 0 {
		t.Fatalf("expected assigned wallet id")
	}

	// The same address cannot be watched twice by the same user.
	dup := &WatchedWallet{UserID: user.ID, Chain: "ethereum", Address: "0xabc", Symbol: "ETH"}
	if err := CreateWatchedWallet(db, dup); err == nil {
		t.Fatalf("expected unique constraint violation for duplicate wallet")
	}

	wallets, err := GetWatchedWallets(db, user.ID)
	if err != nil {
		t.Fatalf("GetWatchedWallets: %v", err)
	}
	if len(wallets) != 1 || wallets[0].Address != "0xabc" {
		t.Fatalf("unexpected wallets: %+v", wallets)
	}

	if err := DeleteWatchedWallet(db, user.ID, wallet.ID); err != nil {
		t.Fatalf("DeleteWatchedWallet: %v", err)
	}
	wallets, err = GetWatchedWallets(db, user.ID)
	if err != nil {
		t.Fatalf("GetWatchedWallets: %v", err)
	}
	if len(wallets) != 0 {
		t.Fatalf("expected wallet removed, got %+v", wallets)
	}
}

func TestDeleteWatchedWalletScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	owner := newTestUser(t, db, "mona")
	intruder := newTestUser(t, db, "nick")

	wallet := &WatchedWallet{UserID: owner.ID, Chain: "ethereum", Address: "0xdef", Symbol: "ETH"}
	if err := CreateWatchedWallet(db, wallet); err != nil {
		t.Fatalf("CreateWatchedWallet: %v", err)
	}

	if err := DeleteWatchedWallet(db, intruder.ID, wallet.ID); err != nil {
		t.Fatalf("DeleteWatchedWallet: %v", err)
	}
	wallets, err := GetWatchedWallets(db, owner.ID)
	if err != nil {
		t.Fatalf("GetWatchedWallets: %v", err)
	}
	if len(wallets) != 1 {
		t.Fatalf("expected wallet untouched by another user's delete, got %+v", wallets)
	}
}
