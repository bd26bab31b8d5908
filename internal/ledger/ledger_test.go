package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

var (
	addrA = types.Address{0x0a}
	addrB = types.Address{0x0b}
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(storage.NewMemory())
}

func TestLedger_AbsentAccountIsZero(t *testing.T) {
	l := newTestLedger(t)

	acct, err := l.Account(addrA)
	if err != nil {
		t.Fatalf("Account() error: %v", err)
	}
	if acct.Balance != 0 || acct.Nonce != 0 {
		t.Errorf("absent account = %+v, want zero", acct)
	}

	bal, err := l.Balance(addrA)
	if err != nil || bal != 0 {
		t.Errorf("Balance() = %d, %v, want 0, nil", bal, err)
	}
}

func TestLedger_CreditDebit(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Credit(addrA, 1000); err != nil {
		t.Fatalf("Credit() error: %v", err)
	}
	if err := l.Debit(addrA, 400); err != nil {
		t.Fatalf("Debit() error: %v", err)
	}

	bal, err := l.Balance(addrA)
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if bal != 600 {
		t.Errorf("Balance() = %d, want 600", bal)
	}
}

func TestLedger_Debit_Insufficient(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(addrA, 100)

	err := l.Debit(addrA, 101)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Debit() err = %v, want ErrInsufficientFunds", err)
	}

	// Balance unchanged after the failed debit.
	bal, _ := l.Balance(addrA)
	if bal != 100 {
		t.Errorf("Balance() after failed debit = %d, want 100", bal)
	}
}

func TestLedger_Credit_Overflow(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(addrA, math.MaxUint64)

	err := l.Credit(addrA, 1)
	if !errors.Is(err, ErrBalanceOverflow) {
		t.Errorf("Credit() err = %v, want ErrBalanceOverflow", err)
	}
}

func TestLedger_Transfer(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(addrA, 1000)

	if err := l.Transfer(addrA, addrB, 250); err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}

	balA, _ := l.Balance(addrA)
	balB, _ := l.Balance(addrB)
	if balA != 750 || balB != 250 {
		t.Errorf("balances = %d/%d, want 750/250", balA, balB)
	}
}

func TestLedger_Transfer_Insufficient(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(addrA, 100)

	err := l.Transfer(addrA, addrB, 200)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Transfer() err = %v, want ErrInsufficientFunds", err)
	}

	balA, _ := l.Balance(addrA)
	balB, _ := l.Balance(addrB)
	if balA != 100 || balB != 0 {
		t.Errorf("failed transfer changed balances: %d/%d", balA, balB)
	}
}

func TestLedger_Transfer_SelfIsNoop(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(addrA, 500)

	if err := l.Transfer(addrA, addrA, 200); err != nil {
		t.Fatalf("Transfer() self error: %v", err)
	}

	bal, _ := l.Balance(addrA)
	if bal != 500 {
		t.Errorf("self transfer changed balance: %d", bal)
	}

	// Still checks funds.
	if err := l.Transfer(addrA, addrA, 600); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("self transfer err = %v, want ErrInsufficientFunds", err)
	}
}

func TestLedger_Transfer_OverflowAtReceiver(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(addrA, 100)
	l.Credit(addrB, math.MaxUint64-10)

	err := l.Transfer(addrA, addrB, 50)
	if !errors.Is(err, ErrBalanceOverflow) {
		t.Errorf("Transfer() err = %v, want ErrBalanceOverflow", err)
	}

	// Nothing moved.
	balA, _ := l.Balance(addrA)
	if balA != 100 {
		t.Errorf("sender balance after failed transfer = %d, want 100", balA)
	}
}

func TestLedger_Nonce(t *testing.T) {
	l := newTestLedger(t)

	n, err := l.Nonce(addrA)
	if err != nil || n != 0 {
		t.Fatalf("Nonce() = %d, %v, want 0, nil", n, err)
	}

	if err := l.SetNonce(addrA, 7); err != nil {
		t.Fatalf("SetNonce() error: %v", err)
	}
	n, _ = l.Nonce(addrA)
	if n != 7 {
		t.Errorf("Nonce() = %d, want 7", n)
	}

	// Nonce and balance live in the same account record.
	l.Credit(addrA, 100)
	n, _ = l.Nonce(addrA)
	bal, _ := l.Balance(addrA)
	if n != 7 || bal != 100 {
		t.Errorf("account = nonce %d balance %d, want 7/100", n, bal)
	}
}

func TestLedger_Editions(t *testing.T) {
	l := newTestLedger(t)

	if err := l.CreditEdition(addrA, 1, 5); err != nil {
		t.Fatalf("CreditEdition() error: %v", err)
	}
	if err := l.CreditEdition(addrA, 3, 2); err != nil {
		t.Fatalf("CreditEdition() error: %v", err)
	}
	if err := l.CreditEdition(addrA, 1, 1); err != nil {
		t.Fatalf("CreditEdition() error: %v", err)
	}

	held, err := l.EditionBalance(addrA, 1)
	if err != nil {
		t.Fatalf("EditionBalance() error: %v", err)
	}
	if held != 6 {
		t.Errorf("EditionBalance(series 1) = %d, want 6", held)
	}

	held, _ = l.EditionBalance(addrA, 2)
	if held != 0 {
		t.Errorf("EditionBalance(series 2) = %d, want 0", held)
	}

	all, err := l.EditionsOf(addrA)
	if err != nil {
		t.Fatalf("EditionsOf() error: %v", err)
	}
	want := []EditionBalance{{Series: 1, Amount: 6}, {Series: 3, Amount: 2}}
	if len(all) != len(want) {
		t.Fatalf("EditionsOf() = %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("EditionsOf()[%d] = %v, want %v", i, all[i], want[i])
		}
	}
}

func TestLedger_TransferEdition(t *testing.T) {
	l := newTestLedger(t)
	l.CreditEdition(addrA, 5, 10)

	if err := l.TransferEdition(addrA, addrB, 5, 4); err != nil {
		t.Fatalf("TransferEdition() error: %v", err)
	}

	heldA, _ := l.EditionBalance(addrA, 5)
	heldB, _ := l.EditionBalance(addrB, 5)
	if heldA != 6 || heldB != 4 {
		t.Errorf("holdings = %d/%d, want 6/4", heldA, heldB)
	}

	err := l.TransferEdition(addrA, addrB, 5, 100)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("TransferEdition() err = %v, want ErrInsufficientFunds", err)
	}

	// Transferring a series the sender does not hold.
	err = l.TransferEdition(addrA, addrB, 99, 1)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("TransferEdition() unknown series err = %v, want ErrInsufficientFunds", err)
	}
}

func TestLedger_TransferEdition_DrainsToZero(t *testing.T) {
	l := newTestLedger(t)
	l.CreditEdition(addrA, 2, 3)

	if err := l.TransferEdition(addrA, addrB, 2, 3); err != nil {
		t.Fatalf("TransferEdition() error: %v", err)
	}

	// The zero holding row is removed, not stored.
	all, err := l.EditionsOf(addrA)
	if err != nil {
		t.Fatalf("EditionsOf() error: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("EditionsOf() after drain = %v, want empty", all)
	}
}

func TestLedger_OnOverlay_DiscardLeavesBaseClean(t *testing.T) {
	base := storage.NewMemory()
	l := New(base)
	l.Credit(addrA, 1000)

	ov := storage.NewOverlay(base)
	staged := New(ov)

	if err := staged.Transfer(addrA, addrB, 300); err != nil {
		t.Fatalf("Transfer() on overlay error: %v", err)
	}
	ov.Discard()

	bal, _ := l.Balance(addrA)
	if bal != 1000 {
		t.Errorf("base balance after discard = %d, want 1000", bal)
	}
	balB, _ := l.Balance(addrB)
	if balB != 0 {
		t.Errorf("receiver balance after discard = %d, want 0", balB)
	}
}
