package maps

import (
	"fmt"
	"phenotips.org/pedigree/utils"
	"reflect"
)

func mapToStruct(fromMap map[string]interface{}, toPtr interface{}) error {
	value := reflect.ValueOf(toPtr)
	if value.Kind() != reflect.Ptr {
		return fmt.Errorf("%v is not a pointer", toPtr)
	}
	value = value.Elem()
	if value.Kind() != reflect.Struct {
		return fmt.Errorf("%v is not a struct pointer", toPtr)
	}
	valueType := value.Type()
	for i := 0; i < value.NumField(); i++ {
		fieldInfo := valueType.Field(i)
		mapKey := jsonKey(fieldInfo)
		if mapKey == "" {
			continue
		}
		rawFieldContents, ok := fromMap[mapKey]
		if !ok || rawFieldContents == nil {
			continue
		}
		if err := readValue(rawFieldContents, value.Field(i)); err != nil {
			return fmt.Errorf("got error at field %s: %w", fieldInfo.Name, err)
		}
	}
	return nil
}

func readValue(raw interface{}, fieldValue reflect.Value) error {
	switch fieldValue.Kind() {
	case reflect.Struct:
		innerMap, ok := raw.(map[string]interface{})
		if !ok {
			return nil
		}
		return mapToStruct(innerMap, asStruct(fieldValue).pointer())
	case reflect.Slice:
		return readSlice(raw, fieldValue)
	case reflect.Map:
		return readMap(raw, fieldValue)
	case reflect.Ptr:
		if raw == nil {
			return nil
		}
		value := asPointer(fieldValue)
		value.init()
		return readValue(raw, value.pointedValue())
	default:
		// Most probably fieldValue is a primitive
		return readPrimitive(raw, fieldValue)
	}
}

func readPrimitive(raw interface{}, fieldValue reflect.Value) (err error) {
	defer utils.RecoverWithError(&err)
	if raw == nil {
		return nil
	}
	fieldValue.Set(reflect.ValueOf(raw).Convert(fieldValue.Type()))
	return nil
}

func readSlice(raw interface{}, sliceValue reflect.Value) error {
	if raw == nil {
		return nil
	}
	value, ok := raw.([]interface{})
	if !ok {
		return fmt.Errorf("expected slice, got %v type", reflect.TypeOf(raw))
	}
	elemType := sliceValue.Type().Elem()
	slice := reflect.MakeSlice(sliceValue.Type(), 0, len(value))
	for _, elem := range value {
		elemValue := reflect.New(elemType).Elem()
		if err := readValue(elem, elemValue); err != nil {
			return err
		}
		slice = reflect.Append(slice, elemValue)
	}
	sliceValue.Set(slice)
	return nil
}

func readMap(raw interface{}, mapValue reflect.Value) error {
	if raw == nil {
		return nil
	}
	value, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("expected map, got %v type", reflect.TypeOf(raw))
	}
	// mapValue is a nil map at this point, it has to be created explicitly
	mv := reflect.MakeMap(mapValue.Type())
	elemType := mapValue.Type().Elem()
	for key, elem := range value {
		elemValue := reflect.New(elemType).Elem()
		if err := readValue(elem, elemValue); err != nil {
			return err
		}
		mv.SetMapIndex(reflect.ValueOf(key), elemValue)
	}
	mapValue.Set(mv)
	return nil
}

func updateMapFromStruct(mapToUpdate map[string]interface{}, v interface{}) error {
	value := reflect.ValueOf(v)
	if value.Kind() != reflect.Ptr {
		return fmt.Errorf("%v is not a pointer", v)
	}
	value = value.Elem()
	if value.Kind() != reflect.Struct {
		return fmt.Errorf("%v is not a struct pointer", v)
	}
	valueType := value.Type()
	for i := 0; i < value.NumField(); i++ {
		fieldInfo := valueType.Field(i)
		mapKey := jsonKey(fieldInfo)
		if mapKey == "" {
			continue
		}
		fieldValue := value.Field(i)
		updated, err := makeUpdatedValue(mapToUpdate[mapKey], fieldValue)
		if err != nil {
			return fmt.Errorf("got error at field %s: %w", fieldInfo.Name, err)
		}
		mapToUpdate[mapKey] = updated
	}
	return nil
}

func makeUpdatedValue(current interface{}, v reflect.Value) (interface{}, error) {
	switch v.Kind() {
	case reflect.Struct:
		return makeMapFromStruct(current, asStruct(v))
	case reflect.Ptr:
		if v.IsNil() {
			return nil, nil
		}
		return makeUpdatedValue(current, asPointer(v).pointedValue())
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		return makeSlice(v)
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		return makeMap(v)
	default:
		// Most probably fieldValue is a primitive
		return v.Interface(), nil
	}
}

func makeMapFromStruct(current interface{}, value structValue) (interface{}, error) {
	var innerMap map[string]interface{}
	if current == nil {
		innerMap = map[string]interface{}{}
	} else if m, ok := current.(map[string]interface{}); ok {
		innerMap = m
	} else {
		return nil, fmt.Errorf(
			"expected inner structure to be map, got %v",
			reflect.TypeOf(current),
		)
	}
	if err := updateMapFromStruct(innerMap, value.pointer()); err != nil {
		return nil, err
	}
	return innerMap, nil
}

func makeSlice(sliceField reflect.Value) ([]interface{}, error) {
	slice := make([]interface{}, sliceField.Len())
	for index := 0; index < sliceField.Len(); index++ {
		updatedValue, err := makeUpdatedValue(nil, sliceField.Index(index))
		if err != nil {
			return nil, err
		}
		slice[index] = updatedValue
	}
	return slice, nil
}

func makeMap(mapField reflect.Value) (map[string]interface{}, error) {
	m := map[string]interface{}{}
	iter := mapField.MapRange()
	for iter.Next() {
		updatedValue, err := makeUpdatedValue(nil, iter.Value())
		if err != nil {
			return nil, err
		}
		m[iter.Key().String()] = updatedValue
	}
	return m, nil
}
