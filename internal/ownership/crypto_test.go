package ownership

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveKey("10.0.0.1:9000", "report.csv")
	plaintext := []byte("quarterly figures, not actually secret")

	ciphertext := Encrypt(key, plaintext)
	if string(ciphertext) == string(plaintext) {
		t.Fatal("ciphertext should differ from plaintext")
	}

	recovered := Decrypt(key, ciphertext)
	if string(recovered) != string(plaintext) {
		t.Fatalf("Decrypt(Encrypt(x)) = %q, want %q", recovered, plaintext)
	}
}

func TestEncryptHandlesLongInputAcrossKeyBlocks(t *testing.T) {
	key := DeriveKey("addr", "file")
	plaintext := make([]byte, 100) // spans more than one 32-byte keystream block
	for i := range plaintext {
		plaintext[i] = byte(i)
	}

	ciphertext := Encrypt(key, plaintext)
	recovered := Decrypt(key, ciphertext)
	if string(recovered) != string(plaintext) {
		t.Fatal("round trip failed across multiple keystream blocks")
	}
}

func TestDifferentAddressesProduceDifferentKeys(t *testing.T) {
	k1 := DeriveKey("host-a:1", "file.txt")
	k2 := DeriveKey("host-b:1", "file.txt")
	if k1 == k2 {
		t.Fatal("different addresses should derive different keys")
	}
}
