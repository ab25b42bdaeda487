package core

// FindInformationElement walks a raw 802.11 information element chain
// (ID, length, value triplets) and returns the value of the first element
// with the given ID. The second return is false when the chain ends or is
// malformed before the ID appears.
func FindInformationElement(body []byte, id uint8) ([]byte, bool) {
	for len(body) >= 2 {
		elemID := body[0]
		length := int(body[1])
		if len(body) < 2+length {
			return nil, false
		}
		if elemID == id {
			return body[2 : 2+length], true
		}
		body = body[2+length:]
	}
	return nil, false
}
